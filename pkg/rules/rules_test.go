package rules_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/rules"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/timeline"
)

func newEngine(t *testing.T, base time.Time) (*rules.Engine, *store.Store, *timeline.Timeline, *int) {
	t.Helper()
	s := store.New()
	ns, err := s.AddNamespace(ari.NameSegment("test"), ari.NameSegment("mod"), "r1")
	require.NoError(t, err)

	runs := 0
	_, err = ns.AddObject(ari.KindCtrl, &store.Descriptor{
		Name: ari.NameSegment("tick"),
		Execute: func(ctx any, ap *store.Aparams) {
			runs++
			ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
		},
	})
	require.NoError(t, err)

	tl := timeline.New()
	eng := &rules.Engine{
		Store:    s,
		Timeline: tl,
		Clock:    func() time.Time { return base },
		EvalFn:   func(*ari.AC) (ari.Value, error) { return ari.Bool(true), nil },
		NewRunContext: func() *exec.RunContext {
			return &exec.RunContext{Store: s, Timeline: tl, Instr: &exec.Instrumentation{}, Clock: func() time.Time { return base }}
		},
	}
	return eng, s, tl, &runs
}

func TestEnableTBR_FiresAndReschedulesUntilMaxCount(t *testing.T) {
	base := time.Unix(1000, 0)
	eng, s, tl, runs := newEngine(t, base)
	ns, _ := s.FindNamespace(ari.NameSegment("test"), ari.NameSegment("mod"))
	actionPath := ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindCtrl, Object: ari.NameSegment("tick")}
	actionAC := ari.NewAC(ari.NewReference(actionPath))

	desc := &store.Descriptor{Action: actionAC, Period: int64(time.Second), MaxCount: 2}
	_, err := ns.AddObject(ari.KindTBR, desc)
	require.NoError(t, err)

	eng.EnableTBR(desc)
	assert.Equal(t, 1, tl.Len())

	tl.FireDue(base.Add(2 * time.Second))
	assert.Equal(t, 1, *runs)
	assert.Equal(t, uint64(1), desc.RunCount)
	assert.True(t, desc.Enabled)

	tl.FireDue(base.Add(3 * time.Second))
	assert.Equal(t, 2, *runs)
	assert.Equal(t, uint64(2), desc.RunCount)
	assert.False(t, desc.Enabled, "rule should disable itself once MaxCount is reached")
}

func TestEnableTBR_FirstFiringIsAtStartTimeNotPeriod(t *testing.T) {
	base := time.Unix(1500, 0)
	eng, s, tl, runs := newEngine(t, base)
	ns, _ := s.FindNamespace(ari.NameSegment("test"), ari.NameSegment("mod"))
	actionPath := ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindCtrl, Object: ari.NameSegment("tick")}
	actionAC := ari.NewAC(ari.NewReference(actionPath))

	period := 200 * time.Millisecond
	desc := &store.Descriptor{Action: actionAC, StartTime: ari.Duration(0), Period: int64(period), MaxCount: 3}
	_, err := ns.AddObject(ari.KindTBR, desc)
	require.NoError(t, err)

	eng.EnableTBR(desc)
	at, ok := tl.Next()
	require.True(t, ok)
	assert.True(t, at.Equal(base), "a zero TD start-time must fire at t0, got %v want %v", at, base)

	tl.FireDue(base)
	assert.Equal(t, 1, *runs)
	at, ok = tl.Next()
	require.True(t, ok)
	assert.True(t, at.Equal(base.Add(period)), "second firing must be t0+period, got %v want %v", at, base.Add(period))

	tl.FireDue(base.Add(period))
	assert.Equal(t, 2, *runs)
	at, ok = tl.Next()
	require.True(t, ok)
	assert.True(t, at.Equal(base.Add(2*period)), "third firing must be t0+2*period, got %v want %v", at, base.Add(2*period))
}

func TestEnableTBR_AbsoluteStartTimeFiresDirectly(t *testing.T) {
	base := time.Unix(1600, 0)
	eng, s, tl, _ := newEngine(t, base)
	ns, _ := s.FindNamespace(ari.NameSegment("test"), ari.NameSegment("mod"))
	actionPath := ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindCtrl, Object: ari.NameSegment("tick")}
	actionAC := ari.NewAC(ari.NewReference(actionPath))

	absolute := base.Add(5 * time.Second)
	desc := &store.Descriptor{Action: actionAC, StartTime: ari.Timepoint(absolute), Period: int64(time.Second), MaxCount: 1}
	_, err := ns.AddObject(ari.KindTBR, desc)
	require.NoError(t, err)

	eng.EnableTBR(desc)
	at, ok := tl.Next()
	require.True(t, ok)
	assert.True(t, at.Equal(absolute), "a TP start-time must be used directly, got %v want %v", at, absolute)
}

func TestEnableSBR_FiresWhenConditionTruthy(t *testing.T) {
	base := time.Unix(2000, 0)
	eng, s, tl, runs := newEngine(t, base)
	ns, _ := s.FindNamespace(ari.NameSegment("test"), ari.NameSegment("mod"))
	actionPath := ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindCtrl, Object: ari.NameSegment("tick")}
	actionAC := ari.NewAC(ari.NewReference(actionPath))
	condAC := ari.NewAC(ari.Bool(true))

	desc := &store.Descriptor{Action: actionAC, Condition: condAC, MinInterval: int64(time.Second), MaxCount: 1}
	_, err := ns.AddObject(ari.KindSBR, desc)
	require.NoError(t, err)

	eng.EnableSBR(desc)
	tl.FireDue(base.Add(2 * time.Second))

	assert.Equal(t, 1, *runs)
	assert.False(t, desc.Enabled)
}

func TestDisableTBR_StopsFurtherRescheduling(t *testing.T) {
	base := time.Unix(3000, 0)
	eng, s, tl, runs := newEngine(t, base)
	ns, _ := s.FindNamespace(ari.NameSegment("test"), ari.NameSegment("mod"))
	actionPath := ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindCtrl, Object: ari.NameSegment("tick")}
	actionAC := ari.NewAC(ari.NewReference(actionPath))

	desc := &store.Descriptor{Action: actionAC, Period: int64(time.Second)}
	_, err := ns.AddObject(ari.KindTBR, desc)
	require.NoError(t, err)

	eng.EnableTBR(desc)
	eng.DisableTBR(desc)
	tl.FireDue(base.Add(2 * time.Second))

	assert.Equal(t, 0, *runs)
}
