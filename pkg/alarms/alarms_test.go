package alarms_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/alarms"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
)

func TestRaise_CreatesEntryWithInitialHistory(t *testing.T) {
	idx := alarms.NewIndex(10, 0)
	resource := ari.Label("res-1")
	category := ari.Null
	at := time.Unix(1000, 0)

	e := idx.Raise(resource, category, alarms.SeverityMajor, at)
	require.NotNil(t, e)
	assert.Equal(t, alarms.SeverityMajor, e.Severity)
	assert.Len(t, e.History, 1)
	assert.Equal(t, 1, idx.Len())
}

func TestRaise_SameKeyUpdatesRatherThanDuplicates(t *testing.T) {
	idx := alarms.NewIndex(10, 0)
	resource := ari.Label("res-1")

	idx.Raise(resource, ari.Null, alarms.SeverityWarning, time.Unix(1000, 0))
	idx.Raise(resource, ari.Null, alarms.SeverityCritical, time.Unix(1001, 0))

	assert.Equal(t, 1, idx.Len())
	snap := idx.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, alarms.SeverityCritical, snap[0].Severity)
	assert.Len(t, snap[0].History, 2)
}

func TestRaise_UnchangedSeverityDoesNotGrowHistory(t *testing.T) {
	idx := alarms.NewIndex(10, 0)
	resource := ari.Label("res-1")

	idx.Raise(resource, ari.Null, alarms.SeverityWarning, time.Unix(1000, 0))
	idx.Raise(resource, ari.Null, alarms.SeverityWarning, time.Unix(1001, 0))

	snap := idx.Snapshot()
	require.Len(t, snap, 1)
	assert.Len(t, snap[0].History, 1)
}

func TestAppendHistory_CompressesWithinWindow(t *testing.T) {
	idx := alarms.NewIndex(10, 5*time.Second)
	resource := ari.Label("res-1")

	idx.Raise(resource, ari.Null, alarms.SeverityWarning, time.Unix(1000, 0))
	idx.Raise(resource, ari.Null, alarms.SeverityMajor, time.Unix(1002, 0))
	idx.Raise(resource, ari.Null, alarms.SeverityMajor, time.Unix(1004, 0))

	snap := idx.Snapshot()
	require.Len(t, snap, 1)
	assert.Len(t, snap[0].History, 2, "second major transition within the window should replace, not append")
}

func TestAppendHistory_BoundedByMaxHistory(t *testing.T) {
	idx := alarms.NewIndex(3, 0)
	resource := ari.Label("res-1")
	sevs := []alarms.Severity{alarms.SeverityWarning, alarms.SeverityMinor, alarms.SeverityMajor, alarms.SeverityCritical, alarms.SeverityCleared}
	for i, s := range sevs {
		idx.Raise(resource, ari.Null, s, time.Unix(int64(1000+i), 0))
	}
	snap := idx.Snapshot()
	require.Len(t, snap, 1)
	assert.Len(t, snap[0].History, 3)
	assert.Equal(t, alarms.SeverityCleared, snap[0].History[len(snap[0].History)-1].Severity)
}

func TestPurge_RemovesMatchingAndReturnsCount(t *testing.T) {
	idx := alarms.NewIndex(10, 0)
	idx.Raise(ari.Label("a"), ari.Null, alarms.SeverityCleared, time.Unix(1000, 0))
	idx.Raise(ari.Label("b"), ari.Null, alarms.SeverityCritical, time.Unix(1001, 0))

	n := idx.Purge(func(e *alarms.Entry) bool { return e.Severity != alarms.SeverityCleared })
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, idx.Len())
	snap := idx.Snapshot()
	assert.Equal(t, alarms.SeverityCritical, snap[0].Severity)
}

func TestToTable_ProducesOneRowPerAlarm(t *testing.T) {
	idx := alarms.NewIndex(10, 0)
	idx.Raise(ari.Label("a"), ari.Null, alarms.SeverityWarning, time.Unix(1000, 0))
	idx.Raise(ari.Label("b"), ari.Null, alarms.SeverityMajor, time.Unix(1001, 0))

	tbl, ok := ari.TBLOf(idx.ToTable())
	require.True(t, ok)
	assert.Equal(t, 9, tbl.NumCols)
	assert.Len(t, tbl.Rows, 2)
}
