package aricbor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/aricbor"
)

func roundTrip(t *testing.T, v ari.Value) ari.Value {
	t.Helper()
	enc := aricbor.Encode(v)
	got, n, err := aricbor.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)
	return got
}

func TestRoundTrip_Primitives(t *testing.T) {
	cases := []ari.Value{
		ari.Undefined,
		ari.Null,
		ari.Bool(true),
		ari.Bool(false),
		ari.Int(-7),
		ari.Uint(42),
		ari.Vast(-1 << 40),
		ari.Uvast(1 << 40),
		ari.Real32(1.5),
		ari.Real64(-2.25),
		ari.Text("hello world"),
		ari.Bytes([]byte{0xde, 0xad, 0xbe, 0xef}),
		ari.Label("col1"),
		ari.TypeTagValue(ari.KindVast),
		ari.CBOROpaque([]byte{1, 2, 3}),
		ari.Duration(90 * time.Second),
		ari.Timepoint(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		assert.True(t, v.Equal(got), "round trip mismatch for %s", v)
	}
}

func TestRoundTrip_TypeTag(t *testing.T) {
	v := ari.Int(5).WithTypeTag(ari.KindVast)
	got := roundTrip(t, v)
	assert.True(t, v.Equal(got))

	tag, ok := got.(ari.Literal).TypeTag()
	require.True(t, ok)
	assert.Equal(t, ari.KindVast, tag)
}

func TestRoundTrip_AC(t *testing.T) {
	v := ari.NewAC(ari.Int(1), ari.Text("a"), ari.NewAC(ari.Bool(true)))
	got := roundTrip(t, v)
	assert.True(t, v.Equal(got))
}

func TestRoundTrip_AM_OrderIndependent(t *testing.T) {
	a := ari.NewAM(ari.Pair{Key: ari.Text("z"), Value: ari.Int(1)}, ari.Pair{Key: ari.Text("a"), Value: ari.Int(2)})
	b := ari.NewAM(ari.Pair{Key: ari.Text("a"), Value: ari.Int(2)}, ari.Pair{Key: ari.Text("z"), Value: ari.Int(1)})

	assert.Equal(t, aricbor.Encode(a), aricbor.Encode(b), "canonical AM encoding must not depend on insertion order")

	got := roundTrip(t, a)
	assert.True(t, a.Equal(got))
}

func TestRoundTrip_TBL(t *testing.T) {
	v := ari.NewTBL(2, [][]ari.Value{
		{ari.Int(1), ari.Text("x")},
		{ari.Int(2), ari.Text("y")},
	})
	got := roundTrip(t, v)
	assert.True(t, v.Equal(got))
}

func TestRoundTrip_ExecSet(t *testing.T) {
	path := ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindCtrl, Object: ari.NameSegment("inspect")}
	ref := ari.NewReference(path).WithParams(ari.Int(1)).WithNamed("opt", ari.Bool(true))
	v := ari.NewExecSet(ari.Uvast(99), ref)
	got := roundTrip(t, v)
	assert.True(t, v.Equal(got))
}

func TestRoundTrip_RptSet(t *testing.T) {
	ref := ari.NewReference(ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindEDD, Object: ari.NameSegment("sw-vendor")})
	refTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v := ari.NewRptSet(ari.Null, refTime, ari.Report{
		RelativeTime: 3 * time.Second,
		Source:       ref,
		Items:        []ari.Value{ari.Text("JHU/APL")},
	})
	got := roundTrip(t, v)
	assert.True(t, v.Equal(got))
}

func TestRoundTrip_Reference_NoParams(t *testing.T) {
	path := ari.ObjectPath{Org: EnumOrg(1), Model: ari.EnumSegment(-5), Type: ari.KindVar, Object: ari.EnumSegment(3)}
	ref := ari.NewReference(path)
	got := roundTrip(t, ref)
	assert.True(t, ref.Equal(got))
}

func EnumOrg(n int64) ari.Segment { return ari.EnumSegment(n) }

func TestDecode_TruncatedInput(t *testing.T) {
	enc := aricbor.Encode(ari.Text("abc"))
	_, _, err := aricbor.Decode(enc[:len(enc)-1])
	assert.Error(t, err)
}
