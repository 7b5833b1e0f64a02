package agent

import (
	"context"
	"errors"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/aricbor"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
)

// ingressLoop decodes ARIs off the transport and enqueues only
// EXECSET-typed ones, per spec.md §4.7.5's ingress filter. A transport EOF
// or context cancellation injects the end-of-stream sentinel of §4.7.6 and
// exits.
func (a *Agent) ingressLoop(ctx context.Context) {
	for {
		raw, err := a.transport.Recv(ctx)
		if err != nil {
			if errors.Is(err, refdaerr.ErrTransportEOF) || ctx.Err() != nil {
				a.pushEndOfStream(ctx)
				return
			}
			continue
		}

		v, _, err := aricbor.Decode(raw)
		if err != nil {
			continue
		}
		execset, ok := ari.ExecSetOf(v)
		if !ok {
			continue
		}

		select {
		case a.execs <- execInput{source: a.peerEndpoint(), execset: execset}:
		case <-a.stopped:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) pushEndOfStream(ctx context.Context) {
	select {
	case a.execs <- execInput{}:
	case <-a.stopped:
	case <-ctx.Done():
	}
}

func (a *Agent) peerEndpoint() ari.Value { return ari.Null }

// executionLoop is the sole consumer of the execs queue and sole mutator of
// the timeline and sequence list, per spec.md §4.9. Each cycle fires due
// timeline events (resuming any item whose wait has elapsed, and running
// any due TBR/SBR), then processes at most one input EXECSET, per spec.md
// §5's suspension-point description.
func (a *Agent) executionLoop(ctx context.Context) {
	ending := false
	for {
		var timer *time.Timer
		if next, ok := a.Timeline.Next(); ok {
			d := time.Until(next)
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
		}

		var pending *execInput
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-a.stopped:
			stopTimer(timer)
			return
		case in, ok := <-a.execs:
			stopTimer(timer)
			if !ok {
				return
			}
			pending = &in
		case <-timerChan(timer):
		}

		a.Timeline.FireDue(a.now())
		if pending != nil {
			if pending.execset == nil {
				ending = true
				a.Timeline.CancelRulePurposes()
			} else {
				a.counters.execsetsReceived.Add(1)
				a.processExecSet(*pending)
			}
		}
		if ending && a.Timeline.Len() == 0 {
			return
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// processExecSet fans one ingress EXECSET out into one sequence per target
// (pkg/exec.ProcessExecSet), tallies any dereference-classified expansion
// failures, and, when the EXECSET carries a nonce, arranges for the
// reporter to finalize that nonce's batched RPTSET once every spawned
// sequence has finished.
func (a *Agent) processExecSet(in execInput) {
	es := in.execset
	rc := a.newRunContext(in.source, es.Nonce, a.aclResolver(in.source))
	seqs := exec.ProcessExecSet(rc, es)

	for _, seq := range seqs {
		for _, inv := range seq.Invalid {
			if errors.Is(inv.Err, refdaerr.ErrDerefNotFound) ||
				errors.Is(inv.Err, refdaerr.ErrDerefWrongType) ||
				errors.Is(inv.Err, refdaerr.ErrExecDerefFailed) {
				a.counters.dereferenceFailed.Add(1)
			}
		}
	}

	if rc.IsNonced() {
		go a.finalizeWhenDone(rc.Nonce, seqs)
	}
}

// finalizeWhenDone blocks (on a goroutine of its own, never the execution
// worker) until every sequence spawned for one EXECSET has finished, then
// asks the reporter to flush that nonce's batched RPTSET, per spec.md
// §4.9.1's one-RPTSET-per-EXECSET batching rule.
func (a *Agent) finalizeWhenDone(nonce ari.Value, seqs []*exec.Sequence) {
	for _, seq := range seqs {
		<-seq.Status.Done()
	}
	a.reporter.Finalize(nonce)
}

// egressLoop drains finished RPTSETs and hands their canonical-binary
// encoding to the transport.
func (a *Agent) egressLoop(ctx context.Context) {
	ch := a.reportQueue.Subscribe()
	defer a.reportQueue.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopped:
			return
		case rs, ok := <-ch:
			if !ok {
				return
			}
			v := ari.NewRptSet(rs.Nonce, rs.ReferenceTime, rs.Reports...)
			if err := a.transport.Send(ctx, aricbor.Encode(v)); err == nil {
				a.counters.reportsSent.Add(1)
			}
		}
	}
}
