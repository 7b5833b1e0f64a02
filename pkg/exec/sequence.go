// Package exec implements the execution engine: sequence/item bookkeeping,
// target expansion, sequence running with CTRL dispatch and deferred
// finish, and the branching/wait builtins, per spec.md §4.7.
package exec

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/timeline"
)

// Stage is an execution item's lifecycle state.
type Stage int32

const (
	StagePending Stage = iota
	StageWaiting
	StageRunning
	StageComplete
)

// Reporter is the narrow interface exec needs from pkg/reporting, kept
// here to avoid an import cycle (reporting sits above exec).
type Reporter interface {
	ReportCtrl(rc *RunContext, source ari.Value, result ari.Value)
}

// Instrumentation counts succeeded/failed CTRL completions.
type Instrumentation struct {
	CtrlsSucceeded atomic.Uint64
	CtrlsFailed    atomic.Uint64
}

// RunContext is the per-EXECSET (or per-rule-firing) execution context: the
// manager identity, nonce, ACL groups, and the shared engine handles a
// sequence needs to expand and run.
type RunContext struct {
	Agent     any // *agent.Agent; opaque here to avoid an import cycle
	ManagerID ari.Value
	Nonce     ari.Value
	ACLGroups []string

	Store    *store.Store
	Timeline *timeline.Timeline
	Reporter Reporter
	Instr    *Instrumentation
	Clock    func() time.Time
}

func (rc *RunContext) now() time.Time {
	if rc.Clock != nil {
		return rc.Clock()
	}
	return time.Now()
}

// IsNonced reports whether this run context's enclosing EXECSET carried a
// non-null nonce, gating whether CTRL completions are reported.
func (rc *RunContext) IsNonced() bool {
	return rc.Nonce != nil && rc.Nonce.Kind() != ari.KindNull
}

// Item is one CTRL invocation in flight within a sequence.
type Item struct {
	Seq         *Sequence
	OriginalRef *ari.Reference
	Deref       deref.Result
	Result      ari.Value
	stage       atomic.Int32
	catchGuard  *catchGuard
}

// catchGuard marks a contiguous run of items spliced by Catch's try branch
// as its protected region (spec.md §4.7.4, §9's splice-at-position-1
// rationale). The first item among them to complete with an undefined
// result is caught: finishItem drops the rest of the region and splices
// onFailure in its place instead of failing the whole sequence.
type catchGuard struct {
	onFailure ari.Value
	triggered atomic.Bool
}

func (it *Item) Stage() Stage     { return Stage(it.stage.Load()) }
func (it *Item) setStage(s Stage) { it.stage.Store(int32(s)) }

// InvalidTarget records an expansion failure for reporting (spec's
// "invalid-item" bookkeeping, emitted as item=undefined when nonced).
type InvalidTarget struct {
	Target ari.Value
	Err    error
}

// Status is the externally observable finish signal for one sequence: a
// failed flag plus a channel that closes exactly once, when the sequence's
// item queue becomes empty (the "counting semaphore" of spec.md §3.4).
type Status struct {
	Failed atomic.Bool
	done   chan struct{}
	once   sync.Once
}

// NewStatus constructs a fresh, not-yet-finished status.
func NewStatus() *Status {
	return &Status{done: make(chan struct{})}
}

// Done returns a channel that closes when the sequence finishes.
func (s *Status) Done() <-chan struct{} { return s.done }

func (s *Status) signalDone() { s.once.Do(func() { close(s.done) }) }

// Sequence is a monotonically-identified run of items created from one
// execution target (or rule action).
type Sequence struct {
	PID     uint64
	RunCtx  *RunContext
	Status  *Status
	Invalid []InvalidTarget

	mu    sync.Mutex
	items []*Item
}

var pidCounter atomic.Uint64

// NewSequence allocates a sequence with a fresh monotonic process id.
func NewSequence(rc *RunContext, status *Status) *Sequence {
	return &Sequence{PID: pidCounter.Add(1), RunCtx: rc, Status: status}
}

func (seq *Sequence) insert(at int, item *Item) {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	if at < 0 {
		at = 0
	}
	if at > len(seq.items) {
		at = len(seq.items)
	}
	seq.items = append(seq.items, nil)
	copy(seq.items[at+1:], seq.items[at:])
	seq.items[at] = item
}

func (seq *Sequence) recordInvalid(target ari.Value, err error) {
	seq.mu.Lock()
	seq.Invalid = append(seq.Invalid, InvalidTarget{Target: target, Err: err})
	seq.mu.Unlock()
}

// front returns the first item without removing it, or nil if empty.
func (seq *Sequence) front() *Item {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	if len(seq.items) == 0 {
		return nil
	}
	return seq.items[0]
}

// popFront removes the first item. It reports whether the queue is now empty.
func (seq *Sequence) popFront() bool {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	if len(seq.items) > 0 {
		seq.items = seq.items[1:]
	}
	return len(seq.items) == 0
}

// drop empties the item queue (halt-on-failure semantics).
func (seq *Sequence) drop() {
	seq.mu.Lock()
	seq.items = nil
	seq.mu.Unlock()
}

// tagRange marks count items starting at start (as inserted by a single
// Expand call) with g, so finishItem can recognize them as one catch-
// protected region.
func (seq *Sequence) tagRange(start, count int, g *catchGuard) {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	for i := start; i < start+count && i < len(seq.items); i++ {
		seq.items[i].catchGuard = g
	}
}

// dropGuardPrefix removes every item at the front of the queue still
// tagged with g, i.e. the unexecuted remainder of a failed catch region,
// leaving whatever follows it (the rest of the outer sequence) in place.
func (seq *Sequence) dropGuardPrefix(g *catchGuard) {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	i := 0
	for i < len(seq.items) && seq.items[i].catchGuard == g {
		i++
	}
	seq.items = seq.items[i:]
}

// Len reports the number of items still queued.
func (seq *Sequence) Len() int {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	return len(seq.items)
}
