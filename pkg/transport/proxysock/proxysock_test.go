package proxysock

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
)

func TestSubmitHex_DecodesAndInvokesIngress(t *testing.T) {
	var received []byte
	ingress := func(ctx context.Context, raw []byte) error {
		received = raw
		return nil
	}

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	text, isError := submitHex(context.Background(), hex.EncodeToString(payload), ingress)
	assert.False(t, isError)
	assert.Equal(t, "accepted", text)
	assert.Equal(t, payload, received)
}

func TestSubmitHex_RejectsMissingParameter(t *testing.T) {
	_, isError := submitHex(context.Background(), "", func(context.Context, []byte) error { return nil })
	assert.True(t, isError)
}

func TestSubmitHex_RejectsInvalidHex(t *testing.T) {
	_, isError := submitHex(context.Background(), "not-hex", func(context.Context, []byte) error { return nil })
	assert.True(t, isError)
}

func TestSubmitHex_SurfacesIngressError(t *testing.T) {
	ingress := func(context.Context, []byte) error { return errors.New("boom") }
	_, isError := submitHex(context.Background(), hex.EncodeToString([]byte{1}), ingress)
	assert.True(t, isError)
}

func TestEncodeHistory_EmptyWhenNoHistory(t *testing.T) {
	assert.Equal(t, "", encodeHistory(nil))
}

func TestEncodeHistory_OneLinePerRptSet(t *testing.T) {
	out := encodeHistory([]*ari.RptSet{
		{Nonce: ari.Int(1), ReferenceTime: time.Unix(1000, 0)},
		{Nonce: ari.Int(2), ReferenceTime: time.Unix(2000, 0)},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
}
