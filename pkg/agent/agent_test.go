package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/aricbor"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// fakeTransport is an in-memory transport.SenderReceiver for driving the
// agent's ingress/egress workers deterministically in tests.
type fakeTransport struct {
	recv   chan []byte
	sent   chan []byte
	closed chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		recv:   make(chan []byte, 8),
		sent:   make(chan []byte, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-f.recv:
		if !ok {
			return nil, refdaerr.TransportEOF()
		}
		return b, nil
	case <-f.closed:
		return nil, refdaerr.TransportEOF()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) Send(ctx context.Context, raw []byte) error {
	select {
	case f.sent <- raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	close(f.closed)
	return nil
}

func pingPath() ari.ObjectPath {
	return ari.ObjectPath{
		Org:    ari.NameSegment("test"),
		Model:  ari.NameSegment("demo"),
		Type:   ari.KindCtrl,
		Object: ari.NameSegment("ping"),
	}
}

func newTestAgent(t *testing.T, ft *fakeTransport) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.WithTransport(ft))
	require.NoError(t, err)
	a.Init()

	ns, err := a.Store.AddNamespace(ari.NameSegment("test"), ari.NameSegment("demo"), "1")
	require.NoError(t, err)
	_, err = ns.AddObject(ari.KindCtrl, &store.Descriptor{
		Name: ari.NameSegment("ping"),
		Execute: func(ctx any, _ *store.Aparams) {
			cc := ctx.(*exec.CtrlContext)
			cc.SetResult(ari.NewAC())
		},
	})
	require.NoError(t, err)
	require.NoError(t, a.Bindrefs())
	return a
}

func TestAgent_ExecsetRoundTripProducesReport(t *testing.T) {
	ft := newFakeTransport()
	a := newTestAgent(t, ft)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer a.Stop()

	target := ari.NewReference(pingPath())
	execset := ari.NewExecSet(ari.Uvast(42), target)
	ft.recv <- aricbor.Encode(execset)

	select {
	case raw := <-ft.sent:
		v, _, err := aricbor.Decode(raw)
		require.NoError(t, err)
		rs, ok := ari.RptSetOf(v)
		require.True(t, ok)
		require.Len(t, rs.Reports, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a report")
	}

	snap := a.Counters()
	assert.Equal(t, uint64(1), snap.ExecsetsReceived)
	assert.Equal(t, uint64(1), snap.CtrlsSucceeded)
}

func TestAgent_UnnoncedExecsetProducesNoReport(t *testing.T) {
	ft := newFakeTransport()
	a := newTestAgent(t, ft)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer a.Stop()

	target := ari.NewReference(pingPath())
	execset := ari.NewExecSet(ari.Null, target)
	ft.recv <- aricbor.Encode(execset)

	select {
	case <-ft.sent:
		t.Fatal("unexpected report for an un-nonced execset")
	case <-time.After(200 * time.Millisecond):
	}

	snap := a.Counters()
	assert.Equal(t, uint64(1), snap.CtrlsSucceeded)
}

func TestAgent_StopUnblocksWorkers(t *testing.T) {
	ft := newFakeTransport()
	a := newTestAgent(t, ft)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	done := make(chan struct{})
	go func() {
		a.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
