package eval

import (
	"math"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Builtin OPER evaluators, registered by pkg/adm/dtnmaagent under the
// well-known operator names. Each takes already-coerced operands (per its
// descriptor's OperandTypes) and returns ari.Undefined on failure per the
// "non-throwing callback" policy in spec §7.

// Negate implements unary numeric negation, preserving the concrete kind.
func Negate(operands []ari.Value) ari.Value {
	v := operands[0]
	switch v.Kind() {
	case ari.KindInt:
		i, _ := ari.AsInt64(v)
		return ari.Int(int32(-i))
	case ari.KindVast:
		i, _ := ari.AsInt64(v)
		return ari.Vast(-i)
	case ari.KindReal32:
		f, _ := ari.AsFloat64(v)
		return ari.Real32(float32(-f))
	case ari.KindReal64:
		f, _ := ari.AsFloat64(v)
		return ari.Real64(-f)
	default:
		return ari.Undefined
	}
}

func promoteBinary(a, b ari.Value) (ari.Kind, error) {
	return ari.PromoteNumeric(a.Kind(), b.Kind())
}

func arith(op func(af, bf float64) float64, opInt func(ai, bi int64) int64, opUint func(au, bu uint64) uint64) func([]ari.Value) ari.Value {
	return func(operands []ari.Value) ari.Value {
		a, b := operands[0], operands[1]
		k, err := promoteBinary(a, b)
		if err != nil {
			return ari.Undefined
		}
		switch k {
		case ari.KindReal64:
			af, _ := ari.AsFloat64(a)
			bf, _ := ari.AsFloat64(b)
			return ari.Real64(op(af, bf))
		case ari.KindUvast:
			au, _ := ari.AsUint64(a)
			bu, _ := ari.AsUint64(b)
			return ari.Uvast(opUint(au, bu))
		default:
			ai, _ := ari.AsInt64(a)
			bi, _ := ari.AsInt64(b)
			return ari.Vast(opInt(ai, bi))
		}
	}
}

// Add implements numeric addition and TD/TP combinations.
func Add(operands []ari.Value) ari.Value {
	if r, ok := timeCombine(operands[0], operands[1], true); ok {
		return r
	}
	return arith(
		func(a, b float64) float64 { return a + b },
		func(a, b int64) int64 { return a + b },
		func(a, b uint64) uint64 { return a + b },
	)(operands)
}

// Sub implements numeric subtraction and TD/TP combinations.
func Sub(operands []ari.Value) ari.Value {
	if r, ok := timeCombine(operands[0], operands[1], false); ok {
		return r
	}
	return arith(
		func(a, b float64) float64 { return a - b },
		func(a, b int64) int64 { return a - b },
		func(a, b uint64) uint64 { return a - b },
	)(operands)
}

// timeCombine implements the TD/TP addition and subtraction table. add
// selects + vs - semantics; ok is false when neither operand is a TD/TP,
// meaning the caller should fall through to plain numeric arithmetic.
func timeCombine(a, b ari.Value, add bool) (ari.Value, bool) {
	aIsTD, bIsTD := a.Kind() == ari.KindTD, b.Kind() == ari.KindTD
	aIsTP, bIsTP := a.Kind() == ari.KindTP, b.Kind() == ari.KindTP
	if !aIsTD && !aIsTP && !bIsTD && !bIsTP {
		return nil, false
	}

	switch {
	case aIsTD && bIsTD:
		ad := a.(ari.Literal).Raw().(time.Duration)
		bd := b.(ari.Literal).Raw().(time.Duration)
		if add {
			return ari.Duration(ad + bd), true
		}
		return ari.Duration(ad - bd), true
	case aIsTD && bIsTP && add:
		ad := a.(ari.Literal).Raw().(time.Duration)
		bt := b.(ari.Literal).Raw().(time.Time)
		return ari.Timepoint(bt.Add(ad)), true
	case aIsTP && bIsTD:
		at := a.(ari.Literal).Raw().(time.Time)
		bd := b.(ari.Literal).Raw().(time.Duration)
		if add {
			return ari.Timepoint(at.Add(bd)), true
		}
		return ari.Timepoint(at.Add(-bd)), true
	case aIsTP && bIsTP && !add:
		at := a.(ari.Literal).Raw().(time.Time)
		bt := b.(ari.Literal).Raw().(time.Time)
		return ari.Duration(at.Sub(bt)), true
	default:
		return ari.Undefined, true
	}
}

// Multiply implements numeric multiplication and TD x scalar (a TP operand
// yields undefined).
func Multiply(operands []ari.Value) ari.Value {
	if r, ok := timeScale(operands[0], operands[1], false); ok {
		return r
	}
	return arith(
		func(a, b float64) float64 { return a * b },
		func(a, b int64) int64 { return a * b },
		func(a, b uint64) uint64 { return a * b },
	)(operands)
}

// Divide implements numeric division (division by zero -> undefined) and
// TD / scalar (a TP operand yields undefined).
func Divide(operands []ari.Value) ari.Value {
	if r, ok := timeScale(operands[0], operands[1], true); ok {
		return r
	}
	a, b := operands[0], operands[1]
	k, err := promoteBinary(a, b)
	if err != nil {
		return ari.Undefined
	}
	switch k {
	case ari.KindReal64:
		af, _ := ari.AsFloat64(a)
		bf, _ := ari.AsFloat64(b)
		if bf == 0 {
			return ari.Undefined
		}
		return ari.Real64(af / bf)
	case ari.KindUvast:
		au, _ := ari.AsUint64(a)
		bu, _ := ari.AsUint64(b)
		if bu == 0 {
			return ari.Undefined
		}
		return ari.Uvast(au / bu)
	default:
		ai, _ := ari.AsInt64(a)
		bi, _ := ari.AsInt64(b)
		if bi == 0 {
			return ari.Undefined
		}
		return ari.Vast(ai / bi)
	}
}

// Remainder implements numeric remainder (float mod on reals).
func Remainder(operands []ari.Value) ari.Value {
	a, b := operands[0], operands[1]
	k, err := promoteBinary(a, b)
	if err != nil {
		return ari.Undefined
	}
	switch k {
	case ari.KindReal64:
		af, _ := ari.AsFloat64(a)
		bf, _ := ari.AsFloat64(b)
		if bf == 0 {
			return ari.Undefined
		}
		return ari.Real64(math.Mod(af, bf))
	case ari.KindUvast:
		au, _ := ari.AsUint64(a)
		bu, _ := ari.AsUint64(b)
		if bu == 0 {
			return ari.Undefined
		}
		return ari.Uvast(au % bu)
	default:
		ai, _ := ari.AsInt64(a)
		bi, _ := ari.AsInt64(b)
		if bi == 0 {
			return ari.Undefined
		}
		return ari.Vast(ai % bi)
	}
}

// timeScale implements TD/TP x scalar and TD/TP / scalar: the first operand
// must be TD (TP scaling is not meaningful and falls through), the second a
// numeric scalar. Infinite/NaN scalars and divide-by-zero both yield
// undefined.
func timeScale(a, b ari.Value, divide bool) (ari.Value, bool) {
	if a.Kind() != ari.KindTD || !b.Kind().IsNumeric() {
		return nil, false
	}
	d := a.(ari.Literal).Raw().(time.Duration)
	f, _ := ari.AsFloat64(b)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return ari.Undefined, true
	}
	if divide {
		if f == 0 {
			return ari.Undefined, true
		}
		return ari.Duration(time.Duration(float64(d) / f)), true
	}
	return ari.Duration(time.Duration(float64(d) * f)), true
}

// BitNot implements unary bitwise complement on integer operands.
func BitNot(operands []ari.Value) ari.Value {
	v := operands[0]
	if v.Kind() == ari.KindUvast || v.Kind() == ari.KindUint {
		u, _ := ari.AsUint64(v)
		return ari.Uvast(^u)
	}
	i, ok := ari.AsInt64(v)
	if !ok {
		return ari.Undefined
	}
	return ari.Vast(^i)
}

func bitwise(opInt func(a, b int64) int64, opUint func(a, b uint64) uint64) func([]ari.Value) ari.Value {
	return func(operands []ari.Value) ari.Value {
		a, b := operands[0], operands[1]
		k, err := promoteBinary(a, b)
		if err != nil || k == ari.KindReal64 {
			return ari.Undefined
		}
		if k == ari.KindUvast {
			au, _ := ari.AsUint64(a)
			bu, _ := ari.AsUint64(b)
			return ari.Uvast(opUint(au, bu))
		}
		ai, _ := ari.AsInt64(a)
		bi, _ := ari.AsInt64(b)
		return ari.Vast(opInt(ai, bi))
	}
}

// BitAnd, BitOr, BitXor implement binary bitwise operators.
func BitAnd(operands []ari.Value) ari.Value {
	return bitwise(func(a, b int64) int64 { return a & b }, func(a, b uint64) uint64 { return a & b })(operands)
}
func BitOr(operands []ari.Value) ari.Value {
	return bitwise(func(a, b int64) int64 { return a | b }, func(a, b uint64) uint64 { return a | b })(operands)
}
func BitXor(operands []ari.Value) ari.Value {
	return bitwise(func(a, b int64) int64 { return a ^ b }, func(a, b uint64) uint64 { return a ^ b })(operands)
}

// BoolNot, BoolAnd, BoolOr, BoolXor operate on operands already coerced to
// BOOL by the evaluator's operand-type conversion step.
func BoolNot(operands []ari.Value) ari.Value {
	b, ok := ari.AsBool(operands[0])
	if !ok {
		return ari.Undefined
	}
	return ari.Bool(!b)
}
func BoolAnd(operands []ari.Value) ari.Value {
	a, ok1 := ari.AsBool(operands[0])
	b, ok2 := ari.AsBool(operands[1])
	if !ok1 || !ok2 {
		return ari.Undefined
	}
	return ari.Bool(a && b)
}
func BoolOr(operands []ari.Value) ari.Value {
	a, ok1 := ari.AsBool(operands[0])
	b, ok2 := ari.AsBool(operands[1])
	if !ok1 || !ok2 {
		return ari.Undefined
	}
	return ari.Bool(a || b)
}
func BoolXor(operands []ari.Value) ari.Value {
	a, ok1 := ari.AsBool(operands[0])
	b, ok2 := ari.AsBool(operands[1])
	if !ok1 || !ok2 {
		return ari.Undefined
	}
	return ari.Bool(a != b)
}

// CompareEq, CompareNe implement structural equality over any ARI.
func CompareEq(operands []ari.Value) ari.Value {
	return ari.Bool(ari.Equal(operands[0], operands[1]))
}
func CompareNe(operands []ari.Value) ari.Value {
	return ari.Bool(!ari.Equal(operands[0], operands[1]))
}

func compareNumeric(cmp func(r int) bool) func([]ari.Value) ari.Value {
	return func(operands []ari.Value) ari.Value {
		a, b := operands[0], operands[1]
		k, err := promoteBinary(a, b)
		if err != nil {
			return ari.Undefined
		}
		var r int
		switch k {
		case ari.KindReal64:
			af, _ := ari.AsFloat64(a)
			bf, _ := ari.AsFloat64(b)
			r = floatCompare(af, bf)
		case ari.KindUvast:
			au, _ := ari.AsUint64(a)
			bu, _ := ari.AsUint64(b)
			r = uintCompare(au, bu)
		default:
			ai, _ := ari.AsInt64(a)
			bi, _ := ari.AsInt64(b)
			r = intCompare(ai, bi)
		}
		return ari.Bool(cmp(r))
	}
}

func floatCompare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func intCompare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func uintCompare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CompareGt, CompareGe, CompareLt, CompareLe implement numeric-promoted
// ordering comparisons.
func CompareGt(operands []ari.Value) ari.Value { return compareNumeric(func(r int) bool { return r > 0 })(operands) }
func CompareGe(operands []ari.Value) ari.Value { return compareNumeric(func(r int) bool { return r >= 0 })(operands) }
func CompareLt(operands []ari.Value) ari.Value { return compareNumeric(func(r int) bool { return r < 0 })(operands) }
func CompareLe(operands []ari.Value) ari.Value { return compareNumeric(func(r int) bool { return r <= 0 })(operands) }

// ListGet implements positional access into an AC; out-of-range is undefined.
func ListGet(operands []ari.Value) ari.Value {
	ac, ok := ari.ACOf(operands[0])
	if !ok {
		return ari.Undefined
	}
	idx, ok := ari.AsInt64(operands[1])
	if !ok || idx < 0 || int(idx) >= len(ac.Items) {
		return ari.Undefined
	}
	return ac.Items[idx]
}

// MapGet implements key access into an AM; missing key is undefined.
func MapGet(operands []ari.Value) ari.Value {
	am, ok := ari.AMOf(operands[0])
	if !ok {
		return ari.Undefined
	}
	v, found := am.Get(operands[1])
	if !found {
		return ari.Undefined
	}
	return v
}

// TblFilter calls rowEval on each row of tbl and, for every row it
// accepts, emits the selected columns (an out-of-range column index yields
// undefined). Row-local label substitution and expression evaluation are
// left entirely to rowEval.
func TblFilter(tbl *ari.TBL, columns []int, rowEval func(row []ari.Value) (bool, error)) (ari.Value, error) {
	outCols := len(columns)
	var rows [][]ari.Value
	for _, row := range tbl.Rows {
		ok, err := rowEval(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		sel := make([]ari.Value, outCols)
		for i, c := range columns {
			if c < 0 || c >= len(row) {
				sel[i] = ari.Undefined
			} else {
				sel[i] = row[c]
			}
		}
		rows = append(rows, sel)
	}
	return ari.NewTBL(outCols, rows), nil
}

// RegisterArithmeticOpers is a convenience table mapping builtin operator
// names to their evaluators, for pkg/adm/dtnmaagent to register as OPER
// descriptors on the ietf/dtnma-agent namespace (the original agent
// registers every arithmetic/comparison operator there, not on amm-base).
var RegisterArithmeticOpers = map[string]store.OperEvaluator{
	"negate":       Negate,
	"add":          Add,
	"sub":          Sub,
	"multiply":     Multiply,
	"divide":       Divide,
	"remainder":    Remainder,
	"bitnot":       BitNot,
	"bitand":       BitAnd,
	"bitor":        BitOr,
	"bitxor":       BitXor,
	"boolnot":      BoolNot,
	"booland":      BoolAnd,
	"boolor":       BoolOr,
	"boolxor":      BoolXor,
	"compareeq":    CompareEq,
	"comparene":    CompareNe,
	"comparegt":    CompareGt,
	"comparege":    CompareGe,
	"comparelt":    CompareLt,
	"comparele":    CompareLe,
	"listget":      ListGet,
	"mapget":       MapGet,
}
