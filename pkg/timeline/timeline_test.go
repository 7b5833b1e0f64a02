package timeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhuapl-dtnma/refda-go/pkg/timeline"
)

func TestFireDue_FiresInTimeOrder(t *testing.T) {
	tl := timeline.New()
	base := time.Unix(1000, 0)
	var order []int

	tl.Schedule(base.Add(3*time.Second), timeline.PurposeExec, func(*timeline.Event) { order = append(order, 3) })
	tl.Schedule(base.Add(1*time.Second), timeline.PurposeExec, func(*timeline.Event) { order = append(order, 1) })
	tl.Schedule(base.Add(2*time.Second), timeline.PurposeExec, func(*timeline.Event) { order = append(order, 2) })

	fired := tl.FireDue(base.Add(2500 * time.Millisecond))
	assert.Equal(t, 2, fired)
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 1, tl.Len())
}

func TestCancel_RemovesPendingEvent(t *testing.T) {
	tl := timeline.New()
	fired := false
	e := tl.Schedule(time.Unix(1000, 0), timeline.PurposeExec, func(*timeline.Event) { fired = true })
	tl.Cancel(e)
	tl.FireDue(time.Unix(2000, 0))
	assert.False(t, fired)
}

func TestCancelRulePurposes_KeepsExecEvents(t *testing.T) {
	tl := timeline.New()
	var execFired, tbrFired bool
	tl.Schedule(time.Unix(1000, 0), timeline.PurposeExec, func(*timeline.Event) { execFired = true })
	tl.Schedule(time.Unix(1000, 0), timeline.PurposeTBR, func(*timeline.Event) { tbrFired = true })

	tl.CancelRulePurposes()
	tl.FireDue(time.Unix(2000, 0))

	assert.True(t, execFired)
	assert.False(t, tbrFired)
}

func TestNext_ReportsEarliestWithoutRemoving(t *testing.T) {
	tl := timeline.New()
	at := time.Unix(5000, 0)
	tl.Schedule(at, timeline.PurposeExec, func(*timeline.Event) {})

	got, ok := tl.Next()
	assert.True(t, ok)
	assert.True(t, got.Equal(at))
	assert.Equal(t, 1, tl.Len())
}
