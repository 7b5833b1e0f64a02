package reporting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/reporting"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

func TestQueue_SubscribeReceivesEnqueued(t *testing.T) {
	q := reporting.NewQueue(10)
	ch := q.Subscribe()

	rs := &ari.RptSet{Nonce: ari.Int(1)}
	q.Enqueue(rs)

	select {
	case got := <-ch:
		assert.Same(t, rs, got)
	default:
		t.Fatal("expected subscriber to receive the enqueued rptset")
	}
	assert.Len(t, q.History(), 1)
}

func TestReporter_ReportCtrlBatchesByNonceUntilFinalize(t *testing.T) {
	q := reporting.NewQueue(10)
	base := time.Unix(1000, 0)
	r := reporting.NewReporter(q, func() time.Time { return base })

	rc := &exec.RunContext{Nonce: ari.Int(7)}
	r.ReportCtrl(rc, ari.Text("src-a"), ari.Int(1))
	r.ReportCtrl(rc, ari.Text("src-b"), ari.Int(2))

	assert.Empty(t, q.History(), "nothing should be enqueued before Finalize")

	r.Finalize(ari.Int(7))
	history := q.History()
	require.Len(t, history, 1)
	assert.Len(t, history[0].Reports, 2)
}

func TestReporter_ReportCtrlSkipsUnnoncedRunContext(t *testing.T) {
	q := reporting.NewQueue(10)
	r := reporting.NewReporter(q, nil)
	rc := &exec.RunContext{}

	r.ReportCtrl(rc, ari.Text("src"), ari.Int(1))
	r.Finalize(nil)
	assert.Empty(t, q.History())
}

func TestResolveRPTT_AcceptsLiteralAndReferenceForm(t *testing.T) {
	s := store.New()
	ns, err := s.AddNamespace(ari.NameSegment("test"), ari.NameSegment("mod"), "r1")
	require.NoError(t, err)

	path := ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindVar, Object: ari.NameSegment("x")}
	_, err = ns.AddObject(ari.KindVar, &store.Descriptor{
		Name:         ari.NameSegment("x"),
		InitialValue: ari.NewAC(ari.Int(1), ari.Int(2)),
		CurrentValue: ari.NewAC(ari.Int(1), ari.Int(2)),
	})
	require.NoError(t, err)

	literalForm := ari.NewAC(ari.Int(1), ari.Int(2))
	ac1, err := reporting.ResolveRPTT(s, nil, nil, literalForm)
	require.NoError(t, err)
	assert.Len(t, ac1.Items, 2)

	ac2, err := reporting.ResolveRPTT(s, nil, nil, ari.NewReference(path))
	require.NoError(t, err)
	assert.Len(t, ac2.Items, 2)
}

func TestWalkRPTT_ResolvesVarReferencesAndPassesLiteralsThrough(t *testing.T) {
	s := store.New()
	ns, err := s.AddNamespace(ari.NameSegment("test"), ari.NameSegment("mod"), "r1")
	require.NoError(t, err)
	_, err = ns.AddObject(ari.KindVar, &store.Descriptor{
		Name:         ari.NameSegment("temp"),
		InitialValue: ari.Int(42),
		CurrentValue: ari.Int(42),
	})
	require.NoError(t, err)

	path := ari.ObjectPath{Org: ari.NameSegment("test"), Model: ari.NameSegment("mod"), Type: ari.KindVar, Object: ari.NameSegment("temp")}
	rptt, _ := ari.ACOf(ari.NewAC(ari.NewReference(path), ari.Text("literal")))

	walked, err := reporting.WalkRPTT(s, nil, nil, rptt)
	require.NoError(t, err)
	require.Len(t, walked.Items, 2)
	assert.True(t, walked.Items[0].Equal(ari.Int(42)))
	assert.True(t, walked.Items[1].Equal(ari.Text("literal")))
}
