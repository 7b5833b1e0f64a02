package exec

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// CtrlContext is handed to a CTRL's Execute callback (store.CtrlExecutor).
// It lets the callback post a result, read its actual parameters, splice
// follow-on targets at position 1 (the refda_exec_next convention, spec.md
// §4.7.4), or suspend the item pending a deferred finish.
type CtrlContext struct {
	item *Item
	seq  *Sequence
}

// SetResult posts the CTRL's outcome. Leaving it undefined marks the item
// (and its sequence) as failed once it completes.
func (c *CtrlContext) SetResult(v ari.Value) { c.item.Result = v }

// Result returns whatever has been posted so far.
func (c *CtrlContext) Result() ari.Value { return c.item.Result }

// Aparams exposes the item's bound actual parameters.
func (c *CtrlContext) Aparams() *store.Aparams { return c.item.Deref.Aparams }

// Item exposes the underlying item, mainly for branch builtins that need
// the original reference for diagnostics.
func (c *CtrlContext) Item() *Item { return c.item }

// RunCtx exposes the shared run context (store, timeline, reporter, clock).
func (c *CtrlContext) RunCtx() *RunContext { return c.seq.RunCtx }

// Sequence exposes the owning sequence, mainly so builtins can call Next.
func (c *CtrlContext) Sequence() *Sequence { return c.seq }

// Suspend marks the item as StageWaiting. The caller is responsible for
// arranging some later code path to call Resume; until then RunSequence
// will not advance past this item.
func (c *CtrlContext) Suspend() { c.item.setStage(StageWaiting) }

// Resume marks a suspended item complete and drives the sequence forward
// again. It is the counterpart to Suspend, invoked from a timeline
// callback once whatever the item was waiting on has occurred.
func (c *CtrlContext) Resume() {
	c.item.setStage(StageComplete)
	finishItem(c.seq, c.item)
	RunSequence(c.seq)
}

// Next splices target into the sequence immediately after the
// currently-running item, implementing the refda_exec_next convention used
// by if-then-else and catch to inject a branch's body (spec.md §4.7.4).
func (c *CtrlContext) Next(target ari.Value) (int, error) {
	return Expand(c.seq, 1, target)
}

// RunSequence drains items from the front of seq, dispatching each CTRL's
// Execute callback and advancing on synchronous completion. It returns
// control to the caller (a worker goroutine) as soon as the head item
// suspends or the queue empties; a suspended item resumes the loop itself
// via CtrlContext.Resume, called from a timeline callback.
func RunSequence(seq *Sequence) {
	for {
		item := seq.front()
		if item == nil {
			seq.Status.signalDone()
			return
		}
		if item.Stage() == StageWaiting {
			return
		}

		item.setStage(StageRunning)
		ctx := &CtrlContext{item: item, seq: seq}
		if exec := item.Deref.Desc.Execute; exec != nil {
			exec(ctx, item.Deref.Aparams)
		}

		if item.Stage() == StageRunning {
			item.setStage(StageComplete)
		}
		if item.Stage() == StageWaiting {
			return
		}

		finishItem(seq, item)
	}
}

// finishItem retires the head item: undefined result halts and fails the
// sequence (dropping remaining items); a defined result pops the item and
// lets RunSequence continue. Either way, a nonced sequence gets one
// ctrl-report for the completion.
//
// An item that carries a catchGuard is an exception to the halt-on-failure
// rule: its undefined result is caught instead of propagated, dropping
// only the rest of its own guarded region and splicing onFailure in place
// of it so RunSequence keeps going.
func finishItem(seq *Sequence, item *Item) {
	rc := seq.RunCtx
	failed := item.Result == nil || ari.IsUndefined(item.Result)

	if failed {
		if rc.Instr != nil {
			rc.Instr.CtrlsFailed.Add(1)
		}
		if rc.IsNonced() && rc.Reporter != nil {
			rc.Reporter.ReportCtrl(rc, item.OriginalRef, ari.Undefined)
		}

		if g := item.catchGuard; g != nil && g.triggered.CompareAndSwap(false, true) {
			seq.dropGuardPrefix(g)
			Expand(seq, 0, g.onFailure)
			return
		}

		seq.Status.Failed.Store(true)
		seq.drop()
		seq.Status.signalDone()
		return
	}

	if rc.Instr != nil {
		rc.Instr.CtrlsSucceeded.Add(1)
	}
	if rc.IsNonced() && rc.Reporter != nil {
		rc.Reporter.ReportCtrl(rc, item.OriginalRef, item.Result)
	}
	empty := seq.popFront()
	if empty {
		seq.Status.signalDone()
	}
}
