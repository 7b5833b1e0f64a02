// Package alarms implements the (resource, category)-keyed alarm index
// backing the ietf-alarms ADM: raise/clear, severity history with bounded
// compression, and purge, per spec.md §4.10 and the IETF alarms ADM in
// original_source/src/refda/adm/ietf_alarms.c.
package alarms

import (
	"sort"
	"sync"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/aricbor"
)

// Severity values mirror the IETF alarms YANG module's severity enum.
type Severity uint64

const (
	SeverityCleared       Severity = 1
	SeverityIndeterminate Severity = 2
	SeverityWarning       Severity = 3
	SeverityMinor         Severity = 4
	SeverityMajor         Severity = 5
	SeverityCritical      Severity = 6
)

// HistoryEntry is one severity transition retained for an alarm.
type HistoryEntry struct {
	Time     time.Time
	Severity Severity
}

// Entry is one (resource, category) alarm's current state plus bounded
// severity history.
type Entry struct {
	Resource  ari.Value
	Category  ari.Value // ari.Null when the alarm has no category
	Severity  Severity
	CreatedAt time.Time
	UpdatedAt time.Time
	History   []HistoryEntry
}

// Index is the agent-wide alarm table, keyed by the canonical binary
// encoding of (resource, category) so lookups don't depend on the ARI
// Go-level representation being comparable.
type Index struct {
	mu             sync.Mutex
	entries        map[string]*Entry
	order          []*Entry
	maxHistory     int
	compressWindow time.Duration
}

// NewIndex constructs an empty alarm index. maxHistory bounds how many
// HistoryEntry records each alarm retains (oldest dropped first);
// compressWindow, if positive, collapses consecutive history entries of
// the same severity arriving within that window into one (the
// "compression" spec.md asks for, avoiding history growth under a
// rapidly flapping condition).
func NewIndex(maxHistory int, compressWindow time.Duration) *Index {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &Index{entries: make(map[string]*Entry), maxHistory: maxHistory, compressWindow: compressWindow}
}

func key(resource, category ari.Value) string {
	if category == nil {
		category = ari.Null
	}
	return string(aricbor.Encode(resource)) + "|" + string(aricbor.Encode(category))
}

// Raise creates or updates the alarm for (resource, category). A severity
// change is appended to history (subject to compression); an unchanged
// severity only bumps UpdatedAt.
func (idx *Index) Raise(resource, category ari.Value, severity Severity, at time.Time) *Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	k := key(resource, category)
	e, ok := idx.entries[k]
	if !ok {
		e = &Entry{Resource: resource, Category: category, Severity: severity, CreatedAt: at, UpdatedAt: at}
		e.History = append(e.History, HistoryEntry{Time: at, Severity: severity})
		idx.entries[k] = e
		idx.order = append(idx.order, e)
		sort.SliceStable(idx.order, func(i, j int) bool { return idx.order[i].CreatedAt.Before(idx.order[j].CreatedAt) })
		return e
	}

	e.UpdatedAt = at
	if e.Severity == severity {
		return e
	}
	e.Severity = severity
	idx.appendHistory(e, HistoryEntry{Time: at, Severity: severity})
	return e
}

// Clear raises a cleared-severity transition for (resource, category). It
// is a no-op if no such alarm exists.
func (idx *Index) Clear(resource, category ari.Value, at time.Time) {
	idx.mu.Lock()
	k := key(resource, category)
	_, ok := idx.entries[k]
	idx.mu.Unlock()
	if !ok {
		return
	}
	idx.Raise(resource, category, SeverityCleared, at)
}

func (idx *Index) appendHistory(e *Entry, h HistoryEntry) {
	if idx.compressWindow > 0 && len(e.History) > 0 {
		last := e.History[len(e.History)-1]
		if last.Severity == h.Severity && h.Time.Sub(last.Time) <= idx.compressWindow {
			e.History[len(e.History)-1] = h
			return
		}
	}
	e.History = append(e.History, h)
	if len(e.History) > idx.maxHistory {
		e.History = e.History[len(e.History)-idx.maxHistory:]
	}
}

// Purge removes every entry for which keep returns false, returning the
// number of entries removed. Used by the purge-alarms control.
func (idx *Index) Purge(keep func(*Entry) bool) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.order[:0]
	removed := 0
	for _, e := range idx.order {
		if keep(e) {
			kept = append(kept, e)
			continue
		}
		delete(idx.entries, key(e.Resource, e.Category))
		removed++
	}
	idx.order = kept
	return removed
}

// Compress collapses the history of every entry for which match returns
// true down to its single most recent HistoryEntry, returning the number
// of entries affected. Backs the compress-alarms control.
func (idx *Index) Compress(match func(*Entry) bool) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	affected := 0
	for _, e := range idx.order {
		if !match(e) || len(e.History) <= 1 {
			continue
		}
		e.History = e.History[len(e.History)-1:]
		affected++
	}
	return affected
}

// Snapshot returns every entry ordered by creation time, matching the
// alarm-list EDD's "table is naturally sorted" contract.
func (idx *Index) Snapshot() []*Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]*Entry, len(idx.order))
	copy(out, idx.order)
	return out
}

// Len reports how many alarms are currently indexed.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.order)
}
