package dtnmaagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/eval"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

func newOperNamespace(t *testing.T) (*store.Store, *store.Namespace) {
	t.Helper()
	s := store.New()
	ns, err := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "r1")
	require.NoError(t, err)
	require.NoError(t, registerOpers(ns))
	return s, ns
}

func operPath(name string) ari.ObjectPath {
	return ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindOper, Object: ari.NameSegment(name)}
}

func runOper(t *testing.T, s *store.Store, name string, args ...ari.Value) (ari.Value, error) {
	t.Helper()
	items := append(append([]ari.Value{}, args...), ari.NewReference(operPath(name)))
	return eval.Run(s, items, func(v ari.Value) (ari.Value, error) { return v, nil })
}

// TestBoolAnd_CoercesIntOperandsToBool covers the review fix for spec.md
// §4.5's requirement that bool-not/and/or/xor operands coerce to BOOL: an
// untyped-any operand would leave AsBool failing and the result undefined.
func TestBoolAnd_CoercesIntOperandsToBool(t *testing.T) {
	s, _ := newOperNamespace(t)
	result, err := runOper(t, s, "bool-and", ari.Int(1), ari.Int(1))
	require.NoError(t, err)
	assert.Equal(t, ari.Bool(true), result)
}

func TestBoolAnd_FalseWhenOneOperandZero(t *testing.T) {
	s, _ := newOperNamespace(t)
	result, err := runOper(t, s, "bool-and", ari.Int(1), ari.Int(0))
	require.NoError(t, err)
	assert.Equal(t, ari.Bool(false), result)
}

// TestBitAnd_PreservesUvastWidth ensures typing bit-and's operands as
// semtype.Integer (rather than semtype.Builtin(ari.KindInt)) does not
// narrow a 64-bit Uvast operand down to a 32-bit Int before the evaluator
// sees it.
func TestBitAnd_PreservesUvastWidth(t *testing.T) {
	s, _ := newOperNamespace(t)
	result, err := runOper(t, s, "bit-and", ari.Uvast(0xFFFFFFFF00), ari.Uvast(0xFF00FF00FF))
	require.NoError(t, err)
	assert.Equal(t, ari.Uvast(0xFF00FF0000), result)
}
