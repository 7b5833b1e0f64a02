package agent

import (
	"sync/atomic"

	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
)

// Counters holds the instrumentation spec.md §4.7.3 names
// (ctrls_succeeded/ctrls_failed, carried on exec.Instrumentation since
// pkg/exec updates those directly) plus the counters recovered from the
// original implementation's refdm/instr.h per SPEC_FULL.md §5.
type Counters struct {
	execsetsReceived  atomic.Uint64
	reportsSent       atomic.Uint64
	rulesFired        atomic.Uint64
	dereferenceFailed atomic.Uint64
}

// CounterSnapshot is a point-in-time read of every agent counter.
type CounterSnapshot struct {
	CtrlsSucceeded      uint64
	CtrlsFailed         uint64
	ExecsetsReceived    uint64
	ReportsSent         uint64
	RulesFired          uint64
	DereferenceFailures uint64
}

func (c *Counters) snapshot(instr *exec.Instrumentation) CounterSnapshot {
	return CounterSnapshot{
		CtrlsSucceeded:      instr.CtrlsSucceeded.Load(),
		CtrlsFailed:         instr.CtrlsFailed.Load(),
		ExecsetsReceived:    c.execsetsReceived.Load(),
		ReportsSent:         c.reportsSent.Load(),
		RulesFired:          c.rulesFired.Load(),
		DereferenceFailures: c.dereferenceFailed.Load(),
	}
}
