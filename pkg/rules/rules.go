// Package rules implements time-based (TBR) and state-based (SBR) rule
// firing atop pkg/timeline and pkg/exec, per spec.md §4.8.
package rules

import (
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/timeline"
)

// Engine drives rule scheduling. It holds no rule state of its own beyond
// what's already on each store.Descriptor (Enabled/RunCount/MaxCount/etc);
// it only knows how to turn that state into timeline events and, when a
// rule fires, a fresh exec sequence running the rule's Action.
type Engine struct {
	Store    *store.Store
	Timeline *timeline.Timeline
	EvalFn   func(*ari.AC) (ari.Value, error)
	Clock    func() time.Time

	// NewRunContext builds an un-nonced RunContext for a rule-triggered
	// sequence; rule firings are never reported directly, only through
	// whatever report-ctrl the action itself performs.
	NewRunContext func() *exec.RunContext

	// OnFire, if set, is called once per actual rule firing (after the
	// condition/cadence check passes, before the action runs), letting the
	// agent keep its rules_fired instrumentation counter without this
	// package needing to know about pkg/agent.
	OnFire func(desc *store.Descriptor)
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Engine) runAction(desc *store.Descriptor) {
	if e.OnFire != nil {
		e.OnFire(desc)
	}
	if desc.Action == nil || ari.IsUndefined(desc.Action) {
		return
	}
	exec.Start(e.NewRunContext(), desc.Action)
}

// EnableTBR schedules a time-based rule's first firing, per spec.md
// §4.8.1: set enabled, reset the run count, capture now as the absolute
// start reference, and schedule compute-next(starting=true).
func (e *Engine) EnableTBR(desc *store.Descriptor) {
	desc.Enabled = true
	desc.RunCount = 0
	desc.AbsoluteStart = ari.Timepoint(e.now())
	e.scheduleNextTBR(desc, time.Time{})
}

// DisableTBR stops a time-based rule; any already-scheduled event is left
// to fire but fireTBR will no-op on an Enabled=false descriptor.
func (e *Engine) DisableTBR(desc *store.Descriptor) {
	desc.Enabled = false
}

// scheduleNextTBR schedules the rule's next firing: the first one from its
// start time, each later one Period after the previous scheduled time prev,
// so the cadence does not drift with how late an event actually fires.
func (e *Engine) scheduleNextTBR(desc *store.Descriptor, prev time.Time) {
	if !desc.Enabled {
		return
	}
	if desc.MaxCount > 0 && desc.RunCount >= desc.MaxCount {
		desc.Enabled = false
		return
	}

	var at time.Time
	if desc.RunCount == 0 {
		at = e.computeFirstTBR(desc)
	} else {
		at = prev.Add(time.Duration(desc.Period))
	}

	e.Timeline.Schedule(at, timeline.PurposeTBR, func(ev *timeline.Event) {
		e.fireTBR(desc, ev.At)
	})
}

// computeFirstTBR implements spec.md §4.8.1's compute-next(starting=true):
// a TP start-time fires at that instant directly; a zero TD fires at now;
// any other TD fires at the absolute start reference (the enable-time
// instant captured in EnableTBR) plus that duration. An unset start-time
// falls back to now.
func (e *Engine) computeFirstTBR(desc *store.Descriptor) time.Time {
	lit, ok := desc.StartTime.(ari.Literal)
	if !ok {
		return e.now()
	}
	switch lit.Kind() {
	case ari.KindTP:
		if tp, ok := lit.Raw().(time.Time); ok {
			return tp
		}
	case ari.KindTD:
		d, ok := lit.Raw().(time.Duration)
		if !ok || d == 0 {
			return e.now()
		}
		if ref, ok := desc.AbsoluteStart.(ari.Literal); ok {
			if reft, ok := ref.Raw().(time.Time); ok {
				return reft.Add(d)
			}
		}
		return e.now().Add(d)
	}
	return e.now()
}

// fireTBR reschedules the next firing before running the action, per the
// process's mandated compute-next-then-expand ordering: a long-running or
// suspending action must not delay the rule's own cadence.
func (e *Engine) fireTBR(desc *store.Descriptor, at time.Time) {
	if !desc.Enabled {
		return
	}
	desc.RunCount++
	e.scheduleNextTBR(desc, at)
	e.runAction(desc)
}

// EnableSBR starts polling a state-based rule's condition every
// MinInterval, per spec.md §4.8.2.
func (e *Engine) EnableSBR(desc *store.Descriptor) {
	desc.Enabled = true
	e.scheduleNextSBRPoll(desc)
}

// DisableSBR stops polling a state-based rule.
func (e *Engine) DisableSBR(desc *store.Descriptor) {
	desc.Enabled = false
}

func (e *Engine) scheduleNextSBRPoll(desc *store.Descriptor) {
	if !desc.Enabled {
		return
	}
	interval := time.Duration(desc.MinInterval)
	if interval <= 0 {
		interval = time.Second
	}
	e.Timeline.Schedule(e.now().Add(interval), timeline.PurposeSBR, func(*timeline.Event) {
		e.pollSBR(desc)
	})
}

func (e *Engine) pollSBR(desc *store.Descriptor) {
	if !desc.Enabled {
		return
	}

	truthy := e.evalCondition(desc)
	if truthy {
		desc.RunCount++
		e.runAction(desc)
		if desc.MaxCount > 0 && desc.RunCount >= desc.MaxCount {
			desc.Enabled = false
			return
		}
	}
	e.scheduleNextSBRPoll(desc)
}

func (e *Engine) evalCondition(desc *store.Descriptor) bool {
	if desc.Condition == nil || ari.IsUndefined(desc.Condition) {
		return false
	}
	lit, ok := desc.Condition.(ari.Literal)
	if !ok {
		return false
	}
	ac, ok := ari.ACOf(lit)
	if !ok {
		return false
	}
	result, err := e.EvalFn(ac)
	if err != nil {
		return false
	}
	truthy, ok := ari.Truthy(result)
	return ok && truthy
}
