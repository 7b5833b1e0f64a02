// Package reporting assembles RPTSETs from CTRL completions and report
// templates, and fans finished RPTSETs out to subscribers (the egress
// transport and any local observability endpoint), per spec.md §4.9.
package reporting

import (
	"sync"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
)

// Queue holds a bounded history of finished RPTSETs and lets multiple
// subscribers (e.g. the egress transport writer, an observability
// endpoint) drain them independently, mirroring the teacher's
// subscribers-map-plus-history monitor pattern.
type Queue struct {
	mu          sync.Mutex
	subscribers map[chan *ari.RptSet]bool
	history     []*ari.RptSet
	maxHistory  int
}

// NewQueue constructs a queue retaining at most maxHistory past RPTSETs
// for late subscribers or debug inspection.
func NewQueue(maxHistory int) *Queue {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Queue{
		subscribers: make(map[chan *ari.RptSet]bool),
		maxHistory:  maxHistory,
	}
}

// Subscribe returns a channel receiving every RPTSET enqueued from now on.
func (q *Queue) Subscribe() <-chan *ari.RptSet {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch := make(chan *ari.RptSet, 64)
	q.subscribers[ch] = true
	return ch
}

// Unsubscribe stops and closes a previously subscribed channel.
func (q *Queue) Unsubscribe(ch <-chan *ari.RptSet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for sub := range q.subscribers {
		if sub == ch {
			delete(q.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Enqueue appends rs to history and fans it out to every live subscriber.
// A subscriber whose buffer is full is skipped rather than blocking the
// enqueuer, since a slow reader must never stall report production.
func (q *Queue) Enqueue(rs *ari.RptSet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.history = append(q.history, rs)
	if len(q.history) > q.maxHistory {
		q.history = q.history[1:]
	}
	for sub := range q.subscribers {
		select {
		case sub <- rs:
		default:
		}
	}
}

// History returns a snapshot of retained RPTSETs, oldest first.
func (q *Queue) History() []*ari.RptSet {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*ari.RptSet, len(q.history))
	copy(out, q.history)
	return out
}
