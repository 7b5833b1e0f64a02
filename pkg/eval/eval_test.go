package eval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/eval"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

func newOperStore(t *testing.T, name string, fn store.OperEvaluator, operandTypes int) (*store.Store, ari.ObjectPath) {
	t.Helper()
	s := store.New()
	ns, err := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("amm-base"), "r1")
	require.NoError(t, err)

	ots := make([]semtype.NamedType, operandTypes)
	for i := range ots {
		ots[i] = semtype.NamedType{Name: "operand", Type: semtype.Any()}
	}
	_, err = ns.AddObject(ari.KindOper, &store.Descriptor{
		Name:         ari.NameSegment(name),
		OperandTypes: ots,
		Evaluate:     fn,
	})
	require.NoError(t, err)
	return s, ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("amm-base"), Type: ari.KindOper, Object: ari.NameSegment(name)}
}

func noopProduce(v ari.Value) (ari.Value, error) { return v, nil }

func TestEvaluate_AddOfTwoNumericLiterals(t *testing.T) {
	s, path := newOperStore(t, "add", eval.Add, 2)
	expr := ari.NewAC(ari.Int(2), ari.Int(3), ari.NewReference(path))
	ac, _ := ari.ACOf(expr)

	result, err := eval.Evaluate(s, ac, noopProduce)
	require.NoError(t, err)
	i, _ := ari.AsInt64(result)
	assert.Equal(t, int64(5), i)
}

func TestEvaluate_EmptyACFailsNonSingle(t *testing.T) {
	s := store.New()
	result, err := eval.Evaluate(s, &ari.AC{}, noopProduce)
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "stack")
}

func TestEvaluate_CompareEqAlwaysTrueForEqualValues(t *testing.T) {
	s, path := newOperStore(t, "compareeq", eval.CompareEq, 2)
	expr := ari.NewAC(ari.Text("x"), ari.Text("x"), ari.NewReference(path))
	ac, _ := ari.ACOf(expr)

	result, err := eval.Evaluate(s, ac, noopProduce)
	require.NoError(t, err)
	assert.True(t, result.Equal(ari.Bool(true)))
}

func TestEvaluate_StackUnderflowFails(t *testing.T) {
	s, path := newOperStore(t, "add", eval.Add, 2)
	expr := ari.NewAC(ari.Int(1), ari.NewReference(path))
	ac, _ := ari.ACOf(expr)

	_, err := eval.Evaluate(s, ac, noopProduce)
	assert.Error(t, err)
}

func TestAdd_TimeArithmetic(t *testing.T) {
	td1 := ari.Duration(2 * time.Second)
	td2 := ari.Duration(3 * time.Second)
	sum := eval.Add([]ari.Value{td1, td2})
	assert.Equal(t, 5*time.Second, sum.(ari.Literal).Raw().(time.Duration))

	tp := ari.Timepoint(time.Unix(1000, 0))
	moved := eval.Add([]ari.Value{tp, td1})
	assert.Equal(t, int64(1002), moved.(ari.Literal).Raw().(time.Time).Unix())
}

func TestDivide_ByZeroIsUndefined(t *testing.T) {
	r := eval.Divide([]ari.Value{ari.Vast(10), ari.Vast(0)})
	assert.True(t, ari.IsUndefined(r))
}

func TestNegate_PreservesKind(t *testing.T) {
	r := eval.Negate([]ari.Value{ari.Real64(2.5)})
	assert.Equal(t, ari.KindReal64, r.Kind())
	f, _ := ari.AsFloat64(r)
	assert.Equal(t, -2.5, f)
}

func TestListGet_OutOfRangeIsUndefined(t *testing.T) {
	r := eval.ListGet([]ari.Value{ari.NewAC(ari.Int(1)), ari.Int(5)})
	assert.True(t, ari.IsUndefined(r))
}

func TestMapGet_MissingKeyIsUndefined(t *testing.T) {
	amVal := ari.NewAM(ari.Pair{Key: ari.Text("k"), Value: ari.Int(1)})
	r := eval.MapGet([]ari.Value{amVal, ari.Text("missing")})
	assert.True(t, ari.IsUndefined(r))

	r = eval.MapGet([]ari.Value{amVal, ari.Text("k")})
	assert.True(t, r.Equal(ari.Int(1)))
}

func TestBoolOperators(t *testing.T) {
	assert.True(t, eval.BoolAnd([]ari.Value{ari.Bool(true), ari.Bool(true)}).Equal(ari.Bool(true)))
	assert.True(t, eval.BoolOr([]ari.Value{ari.Bool(false), ari.Bool(true)}).Equal(ari.Bool(true)))
	assert.True(t, eval.BoolNot([]ari.Value{ari.Bool(false)}).Equal(ari.Bool(true)))
	assert.True(t, eval.BoolXor([]ari.Value{ari.Bool(true), ari.Bool(false)}).Equal(ari.Bool(true)))
}
