package reporting

import (
	"sync"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/aricbor"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
)

// Reporter assembles one RPTSET per nonce out of the individual ctrl-report
// events a sequence's CTRLs produce as they complete, per spec.md §4.9.1.
// It implements exec.Reporter so pkg/exec can call it directly without an
// import cycle.
type Reporter struct {
	mu      sync.Mutex
	pending map[string]*ari.RptSet
	queue   *Queue
	now     func() time.Time
}

// NewReporter constructs a Reporter draining finished RPTSETs into queue.
func NewReporter(queue *Queue, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{pending: make(map[string]*ari.RptSet), queue: queue, now: now}
}

func nonceKey(nonce ari.Value) string {
	if nonce == nil {
		return ""
	}
	return string(aricbor.Encode(nonce))
}

// ReportCtrl appends one Report entry (relative to the RPTSET's reference
// time) to the pending RPTSET for rc's nonce, creating it on first use.
func (r *Reporter) ReportCtrl(rc *exec.RunContext, source ari.Value, result ari.Value) {
	if !rc.IsNonced() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := nonceKey(rc.Nonce)
	rs, ok := r.pending[key]
	if !ok {
		rs = &ari.RptSet{Nonce: rc.Nonce, ReferenceTime: r.now()}
		r.pending[key] = rs
	}
	rs.Reports = append(rs.Reports, ari.Report{
		RelativeTime: r.now().Sub(rs.ReferenceTime),
		Source:       source,
		Items:        []ari.Value{result},
	})
}

// Finalize removes and returns the pending RPTSET for nonce, enqueuing it
// onto the queue. Callers invoke this once every sequence spawned under
// that nonce's EXECSET has finished (spec.md §4.9.1's batching rule: one
// RPTSET per EXECSET, not one per CTRL). It is a no-op if nothing is
// pending for the nonce.
func (r *Reporter) Finalize(nonce ari.Value) {
	key := nonceKey(nonce)
	r.mu.Lock()
	rs, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	r.mu.Unlock()
	if ok {
		r.queue.Enqueue(rs)
	}
}

// EmitAdhoc assembles a one-report RPTSET directly, used by report-target/
// report-ctrl to push an out-of-band report that isn't tied to any CTRL
// sequence's completion (spec.md §4.9.2).
func (r *Reporter) EmitAdhoc(nonce ari.Value, source ari.Value, items []ari.Value) {
	refTime := r.now()
	rs := &ari.RptSet{
		Nonce:         nonce,
		ReferenceTime: refTime,
		Reports:       []ari.Report{{RelativeTime: 0, Source: source, Items: items}},
	}
	r.queue.Enqueue(rs)
}
