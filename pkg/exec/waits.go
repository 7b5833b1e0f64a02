package exec

import (
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/timeline"
)

// WaitForDuration suspends the current item and resumes it once d has
// elapsed, per spec.md §4.7.4's wait-for control. The item completes with
// an empty AC as its result, matching a CTRL with no return value.
func WaitForDuration(ctx *CtrlContext, d time.Duration) {
	ctx.Suspend()
	rc := ctx.RunCtx()
	rc.Timeline.Schedule(rc.now().Add(d), timeline.PurposeExec, func(*timeline.Event) {
		ctx.SetResult(ari.NewAC())
		ctx.Resume()
	})
}

// WaitUntilTime suspends the current item and resumes it at absolute time
// at, per spec.md §4.7.4's wait-until control.
func WaitUntilTime(ctx *CtrlContext, at time.Time) {
	ctx.Suspend()
	rc := ctx.RunCtx()
	rc.Timeline.Schedule(at, timeline.PurposeExec, func(*timeline.Event) {
		ctx.SetResult(ari.NewAC())
		ctx.Resume()
	})
}

// WaitCond polls cond (via eval) immediately, completing the item as soon
// as it is truthy; while falsy it reschedules itself pollEvery out,
// implementing the wait-cond control of spec.md §4.7.4. evalFn must
// evaluate the given AC expression against the engine's store/producer.
func WaitCond(ctx *CtrlContext, cond *ari.AC, pollEvery time.Duration, evalFn func(*ari.AC) (ari.Value, error)) {
	var poll func()
	poll = func() {
		result, err := evalFn(cond)
		if err != nil {
			ctx.SetResult(ari.Undefined)
			if ctx.item.Stage() == StageWaiting {
				ctx.Resume()
			}
			return
		}
		truthy, ok := ari.Truthy(result)
		if ok && truthy {
			ctx.SetResult(ari.Bool(true))
			if ctx.item.Stage() == StageWaiting {
				ctx.Resume()
			}
			return
		}
		ctx.Suspend()
		rc := ctx.RunCtx()
		rc.Timeline.Schedule(rc.now().Add(pollEvery), timeline.PurposeExec, func(*timeline.Event) {
			poll()
		})
	}
	poll()
}

// IfThenElse evaluates cond; on a positive (truthy) result it splices
// onTruthy after the current item, on a negative result it splices
// onFalsy (either may be ari.Undefined, meaning "do nothing"). The CTRL's
// own result is the boolean outcome of the condition, per spec.md §4.7.4.
func IfThenElse(ctx *CtrlContext, cond *ari.AC, onTruthy, onFalsy ari.Value, evalFn func(*ari.AC) (ari.Value, error)) {
	result, err := evalFn(cond)
	if err != nil {
		ctx.SetResult(ari.Undefined)
		return
	}
	truthy, ok := ari.Truthy(result)
	if !ok {
		ctx.SetResult(ari.Undefined)
		return
	}
	ctx.SetResult(ari.Bool(truthy))

	branch := onFalsy
	if truthy {
		branch = onTruthy
	}
	if branch == nil || ari.IsUndefined(branch) {
		return
	}
	ctx.Next(branch)
}

// Catch splices try after the current item, per spec.md §4.7.4 and §9's
// splice-at-position-1 rationale. If expanding try fails immediately (a
// bad reference or macro), onFailure is spliced right away. Otherwise the
// spliced items are tagged as one catch-protected region: if any of them
// completes with an undefined result once it actually runs, finishItem
// drops the rest of that region and splices onFailure in its place,
// instead of letting the undefined result halt the whole sequence.
func Catch(ctx *CtrlContext, try, onFailure ari.Value) {
	ctx.SetResult(ari.NewAC())

	seq := ctx.seq
	n, err := ctx.Next(try)
	if err != nil {
		if onFailure != nil && !ari.IsUndefined(onFailure) {
			ctx.Next(onFailure)
		}
		return
	}
	if n == 0 || onFailure == nil || ari.IsUndefined(onFailure) {
		return
	}
	seq.tagRange(1, n, &catchGuard{onFailure: onFailure})
}
