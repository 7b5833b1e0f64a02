package exec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/timeline"
)

type fakeReporter struct {
	reports []ari.Value
}

func (f *fakeReporter) ReportCtrl(rc *exec.RunContext, source ari.Value, result ari.Value) {
	f.reports = append(f.reports, result)
}

func newTestStore(t *testing.T) (*store.Store, ari.ObjectPath) {
	t.Helper()
	s := store.New()
	_, err := s.AddNamespace(ari.NameSegment("test"), ari.NameSegment("mod"), "r1")
	require.NoError(t, err)
	return s, ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindCtrl}
}

func addCtrl(t *testing.T, s *store.Store, name string, fn store.CtrlExecutor) ari.ObjectPath {
	t.Helper()
	ns, found := s.FindNamespace(ari.NameSegment("test"), ari.NameSegment("mod"))
	require.True(t, found)
	_, err := ns.AddObject(ari.KindCtrl, &store.Descriptor{Name: ari.NameSegment(name), Execute: fn})
	require.NoError(t, err)
	return ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindCtrl, Object: ari.NameSegment(name)}
}

func newRunContext(s *store.Store, reporter exec.Reporter) *exec.RunContext {
	return &exec.RunContext{
		Store:    s,
		Timeline: timeline.New(),
		Reporter: reporter,
		Instr:    &exec.Instrumentation{},
		Nonce:    ari.Int(42),
	}
}

func TestExpand_CtrlRefInsertsOneItem(t *testing.T) {
	s, _ := newTestStore(t)
	path := addCtrl(t, s, "noop", func(ctx any, ap *store.Aparams) {
		ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
	})

	rc := newRunContext(s, &fakeReporter{})
	status := exec.NewStatus()
	seq := exec.NewSequence(rc, status)

	n, err := exec.Expand(seq, 0, ari.NewReference(path))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, seq.Len())
}

func TestExpand_UnknownReferenceFails(t *testing.T) {
	s, path := newTestStore(t)
	path.Object = ari.NameSegment("missing")
	rc := newRunContext(s, &fakeReporter{})
	seq := exec.NewSequence(rc, exec.NewStatus())

	_, err := exec.Expand(seq, 0, ari.NewReference(path))
	assert.Error(t, err)
	assert.Len(t, seq.Invalid, 1)
}

func TestExpand_MacroExpandsEachMember(t *testing.T) {
	s, _ := newTestStore(t)
	p1 := addCtrl(t, s, "a", func(ctx any, ap *store.Aparams) { ctx.(*exec.CtrlContext).SetResult(ari.NewAC()) })
	p2 := addCtrl(t, s, "b", func(ctx any, ap *store.Aparams) { ctx.(*exec.CtrlContext).SetResult(ari.NewAC()) })

	rc := newRunContext(s, &fakeReporter{})
	seq := exec.NewSequence(rc, exec.NewStatus())

	mac := ari.NewAC(ari.NewReference(p1), ari.NewReference(p2))
	n, err := exec.Expand(seq, 0, mac)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, seq.Len())
}

func TestRunSequence_SuccessPopsAllItemsAndSignalsDone(t *testing.T) {
	s, _ := newTestStore(t)
	path := addCtrl(t, s, "ok", func(ctx any, ap *store.Aparams) {
		ctx.(*exec.CtrlContext).SetResult(ari.Int(1))
	})

	reporter := &fakeReporter{}
	rc := newRunContext(s, reporter)
	seq := exec.Start(rc, ari.NewReference(path))

	select {
	case <-seq.Status.Done():
	default:
		t.Fatal("expected sequence to finish synchronously")
	}
	assert.False(t, seq.Status.Failed.Load())
	assert.Equal(t, 0, seq.Len())
	assert.Len(t, reporter.reports, 1)
	assert.Equal(t, uint64(1), rc.Instr.CtrlsSucceeded.Load())
}

func TestRunSequence_UndefinedResultFailsAndDropsQueue(t *testing.T) {
	s, _ := newTestStore(t)
	bad := addCtrl(t, s, "fails", func(ctx any, ap *store.Aparams) {})
	good := addCtrl(t, s, "never-runs", func(ctx any, ap *store.Aparams) {
		ctx.(*exec.CtrlContext).SetResult(ari.Int(1))
	})

	reporter := &fakeReporter{}
	rc := newRunContext(s, reporter)
	seq := exec.NewSequence(rc, exec.NewStatus())
	_, err := exec.Expand(seq, 0, ari.NewAC(ari.NewReference(bad), ari.NewReference(good)))
	require.NoError(t, err)

	exec.RunSequence(seq)

	assert.True(t, seq.Status.Failed.Load())
	assert.Equal(t, 0, seq.Len())
	assert.Equal(t, uint64(1), rc.Instr.CtrlsFailed.Load())
}

func TestWaitForDuration_SuspendsAndResumesOnTimelineFire(t *testing.T) {
	s, _ := newTestStore(t)
	path := addCtrl(t, s, "delayed", func(ctx any, ap *store.Aparams) {
		exec.WaitForDuration(ctx.(*exec.CtrlContext), time.Second)
	})

	rc := newRunContext(s, &fakeReporter{})
	base := time.Unix(1000, 0)
	rc.Clock = func() time.Time { return base }
	seq := exec.Start(rc, ari.NewReference(path))

	select {
	case <-seq.Status.Done():
		t.Fatal("sequence should still be waiting")
	default:
	}
	assert.Equal(t, 1, seq.Len())

	fired := rc.Timeline.FireDue(base.Add(2 * time.Second))
	assert.Equal(t, 1, fired)

	select {
	case <-seq.Status.Done():
	default:
		t.Fatal("sequence should have finished after the timer fired")
	}
	assert.Equal(t, 0, seq.Len())
}

func TestCatch_RuntimeUndefinedTriggersOnFailure(t *testing.T) {
	s, _ := newTestStore(t)
	var recoveryRan bool
	tryCtrl := addCtrl(t, s, "try-body", func(ctx any, ap *store.Aparams) {
		// dereferences fine but fails at run time.
	})
	after := addCtrl(t, s, "after-try", func(ctx any, ap *store.Aparams) {
		ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
	})
	recovery := addCtrl(t, s, "recovery", func(ctx any, ap *store.Aparams) {
		recoveryRan = true
		ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
	})

	tryTarget := ari.NewReference(tryCtrl)
	recoveryTarget := ari.NewReference(recovery)

	catchCtrl := addCtrl(t, s, "catch", func(ctx any, ap *store.Aparams) {
		exec.Catch(ctx.(*exec.CtrlContext), tryTarget, recoveryTarget)
	})

	reporter := &fakeReporter{}
	rc := newRunContext(s, reporter)
	seq := exec.NewSequence(rc, exec.NewStatus())
	_, err := exec.Expand(seq, 0, ari.NewAC(ari.NewReference(catchCtrl), ari.NewReference(after)))
	require.NoError(t, err)

	exec.RunSequence(seq)

	assert.True(t, recoveryRan, "on-failure must run when try completes undefined at run time")
	assert.False(t, seq.Status.Failed.Load(), "a caught failure must not fail the whole sequence")
	assert.Equal(t, 0, seq.Len())
}

func TestCatch_SuccessfulTryDoesNotRunOnFailure(t *testing.T) {
	s, _ := newTestStore(t)
	var recoveryRan bool
	tryCtrl := addCtrl(t, s, "try-body-ok", func(ctx any, ap *store.Aparams) {
		ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
	})
	recovery := addCtrl(t, s, "recovery-unused", func(ctx any, ap *store.Aparams) {
		recoveryRan = true
		ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
	})

	tryTarget := ari.NewReference(tryCtrl)
	recoveryTarget := ari.NewReference(recovery)

	catchCtrl := addCtrl(t, s, "catch-ok", func(ctx any, ap *store.Aparams) {
		exec.Catch(ctx.(*exec.CtrlContext), tryTarget, recoveryTarget)
	})

	reporter := &fakeReporter{}
	rc := newRunContext(s, reporter)
	seq := exec.Start(rc, ari.NewReference(catchCtrl))

	assert.False(t, recoveryRan)
	assert.False(t, seq.Status.Failed.Load())
	assert.Equal(t, 0, seq.Len())
}

func TestIfThenElse_SplicesTruthyBranch(t *testing.T) {
	s, _ := newTestStore(t)
	var branchRan bool
	branch := addCtrl(t, s, "branch", func(ctx any, ap *store.Aparams) {
		branchRan = true
		ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
	})
	other := addCtrl(t, s, "skipped", func(ctx any, ap *store.Aparams) {
		ctx.(*exec.CtrlContext).SetResult(ari.NewAC())
	})

	branchTarget := ari.NewReference(branch)
	otherTarget := ari.NewReference(other)

	cond := &ari.AC{}
	evalFn := func(*ari.AC) (ari.Value, error) { return ari.Bool(true), nil }

	ifCtrl := addCtrl(t, s, "if", func(ctx any, ap *store.Aparams) {
		exec.IfThenElse(ctx.(*exec.CtrlContext), cond, branchTarget, otherTarget, evalFn)
	})

	rc := newRunContext(s, &fakeReporter{})
	seq := exec.Start(rc, ari.NewReference(ifCtrl))

	assert.True(t, branchRan)
	assert.True(t, seq.Status.Done() != nil)
}
