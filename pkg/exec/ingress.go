package exec

import "github.com/jhuapl-dtnma/refda-go/pkg/ari"

// Start creates a fresh sequence for target, expands it, and runs it to its
// first suspension or completion. It is the unit of work for one EXECSET
// target (spec.md §4.7.5): each target gets its own independent sequence,
// so a failure in one does not inhibit the others.
func Start(rc *RunContext, target ari.Value) *Sequence {
	status := NewStatus()
	seq := NewSequence(rc, status)
	if _, err := Expand(seq, 0, target); err != nil {
		if rc.IsNonced() && rc.Reporter != nil {
			rc.Reporter.ReportCtrl(rc, target, ari.Undefined)
		}
		status.Failed.Store(true)
		status.signalDone()
		return seq
	}
	RunSequence(seq)
	return seq
}

// ProcessExecSet fans an ingress EXECSET out into one sequence per target,
// running each independently. Errors in one target's expansion are
// reported (when nonced) and do not prevent the remaining targets from
// running, per spec.md §4.7.5.
func ProcessExecSet(rc *RunContext, execset *ari.ExecSet) []*Sequence {
	seqs := make([]*Sequence, 0, len(execset.Targets))
	for _, target := range execset.Targets {
		seqs = append(seqs, Start(rc, target))
	}
	return seqs
}
