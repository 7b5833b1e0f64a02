package unixsock_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/transport/unixsock"
)

func TestSendRecv_RoundTripsOverDatagramSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refda.sock")

	srv, err := unixsock.Listen(path)
	require.NoError(t, err)
	defer srv.Close()

	cli, err := unixsock.Dial(path)
	require.NoError(t, err)
	defer cli.Close()

	payload := []byte{0x01, 0x02, 0xff, 0x00}
	require.NoError(t, cli.Send(context.Background(), payload))

	got, err := srv.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
