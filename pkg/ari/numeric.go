package ari

import "fmt"

// AsInt64 widens any integer-kind literal to int64. It does not check for
// overflow on the uvast->vast path; callers needing overflow checks should
// convert through semtype instead.
func AsInt64(v Value) (int64, bool) {
	l, ok := v.(Literal)
	if !ok {
		return 0, false
	}
	switch l.kind {
	case KindInt, KindVast:
		return l.val.(int64), true
	case KindUint, KindUvast:
		return int64(l.val.(uint64)), true
	default:
		return 0, false
	}
}

// AsUint64 widens any integer-kind literal to uint64.
func AsUint64(v Value) (uint64, bool) {
	l, ok := v.(Literal)
	if !ok {
		return 0, false
	}
	switch l.kind {
	case KindInt, KindVast:
		return uint64(l.val.(int64)), true
	case KindUint, KindUvast:
		return l.val.(uint64), true
	default:
		return 0, false
	}
}

// AsFloat64 widens any numeric-kind literal to float64.
func AsFloat64(v Value) (float64, bool) {
	l, ok := v.(Literal)
	if !ok {
		return 0, false
	}
	switch l.kind {
	case KindReal32, KindReal64:
		return l.val.(float64), true
	case KindInt, KindVast:
		return float64(l.val.(int64)), true
	case KindUint, KindUvast:
		return float64(l.val.(uint64)), true
	default:
		return 0, false
	}
}

// AsBool extracts a boolean literal's value.
func AsBool(v Value) (bool, bool) {
	l, ok := v.(Literal)
	if !ok || l.kind != KindBool {
		return false, false
	}
	return l.val.(bool), true
}

// AsText extracts a text-string literal's value.
func AsText(v Value) (string, bool) {
	l, ok := v.(Literal)
	if !ok || l.kind != KindTextstr {
		return "", false
	}
	return l.val.(string), true
}

// Truthy implements the spec's explicit integer-to-boolean conversion rule
// (zero -> false, nonzero -> true) generalized across all numeric kinds,
// plus the direct BOOL case. Any other kind is not truthy-convertible.
func Truthy(v Value) (bool, bool) {
	if v == nil || v.IsUndefined() {
		return false, false
	}
	l, ok := v.(Literal)
	if !ok {
		return false, false
	}
	switch {
	case l.kind == KindBool:
		return l.val.(bool), true
	case l.kind.IsInteger():
		i, _ := AsInt64(v)
		return i != 0, true
	case l.kind.IsFloat():
		f, _ := AsFloat64(v)
		return f != 0, true
	default:
		return false, false
	}
}

// PromoteNumeric picks the least-compatible numeric kind of two operands:
// real64 if either operand is a real, uvast if both are unsigned, and vast
// otherwise (including any mix of signed and unsigned).
func PromoteNumeric(a, b Kind) (Kind, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return 0, fmt.Errorf("promote-numeric: non-numeric operand kind %s/%s", a, b)
	}
	if a.IsFloat() || b.IsFloat() {
		return KindReal64, nil
	}
	if a.IsUnsigned() && b.IsUnsigned() {
		return KindUvast, nil
	}
	return KindVast, nil
}
