package aritext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/aritext"
)

func TestEncode_Reference(t *testing.T) {
	path := ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindEDD, Object: ari.NameSegment("sw-vendor")}
	ref := ari.NewReference(path)
	assert.Equal(t, "ari://ietf/dtnma-agent/edd/sw-vendor", aritext.Encode(ref))
}

func TestEncode_ReferenceWithParams(t *testing.T) {
	path := ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindCtrl, Object: ari.NameSegment("inspect")}
	ref := ari.NewReference(path).WithParams(ari.Int(5))
	assert.Equal(t, "ari://ietf/dtnma-agent/ctrl/inspect(ari:/int/5)", aritext.Encode(ref))
}

func TestEncode_Literal(t *testing.T) {
	assert.Equal(t, "ari:/bool/true", aritext.Encode(ari.Bool(true)))
	assert.Equal(t, "ari:/int/5", aritext.Encode(ari.Int(5)))
	assert.Equal(t, `ari:/textstr/"hi"`, aritext.Encode(ari.Text("hi")))
	assert.Equal(t, "ari:undefined", aritext.Encode(ari.Undefined))
}

func TestDecode_RoundTripsScalarsAndPlainReferences(t *testing.T) {
	cases := []ari.Value{
		ari.Bool(false),
		ari.Int(-3),
		ari.Vast(123456789),
		ari.Uvast(42),
		ari.Real64(1.25),
		ari.Text("hello"),
		ari.Null,
		ari.Undefined,
	}
	for _, v := range cases {
		s := aritext.Encode(v)
		got, err := aritext.Decode(s)
		require.NoError(t, err, s)
		assert.True(t, v.Equal(got), "round trip mismatch for %s", s)
	}

	path := ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindEDD, Object: ari.NameSegment("sw-vendor")}
	ref := ari.NewReference(path)
	got, err := aritext.Decode(aritext.Encode(ref))
	require.NoError(t, err)
	assert.True(t, ref.Equal(got))
}

func TestDecode_RejectsParameterizedReference(t *testing.T) {
	_, err := aritext.Decode("ari://ietf/dtnma-agent/ctrl/inspect(ari:/int/5)")
	assert.Error(t, err)
}

func TestDecode_RejectsUnknownScheme(t *testing.T) {
	_, err := aritext.Decode("not-an-ari")
	assert.Error(t, err)
}
