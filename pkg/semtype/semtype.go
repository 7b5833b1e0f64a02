// Package semtype implements the semantic type system: a recursive tagged
// variant over built-in kinds, typedef references, unions, uniform
// lists/maps, table templates, and positional sequences, with Match and
// Convert operations.
package semtype

import (
	"fmt"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
)

// Form discriminates the semantic type's constructor.
type Form int

const (
	FormBuiltin Form = iota
	FormTypedefUse
	FormUnion
	FormUList
	FormUMap
	FormTBLT
	FormSequence
	FormAny
	FormInteger
)

// NamedType pairs a name with a semantic type, used for OPER operand lists,
// TBLT columns, and sequence elements.
type NamedType struct {
	Name string
	Type *Type
}

// Type is the recursive semantic type variant.
type Type struct {
	Form Form

	// FormBuiltin
	Builtin ari.Kind

	// FormTypedefUse: unresolved until Resolver binds it during the binding
	// pass; Ref names the TYPEDEF by path, Resolved is filled in afterward.
	Ref      *ari.Reference
	Resolved *Type

	// FormUnion
	Alternatives []*Type

	// FormUList
	ItemType *Type

	// FormUMap
	KeyType, ValType *Type

	// FormTBLT
	Columns []NamedType

	// FormSequence
	Elements []NamedType
}

// Builtin constructs a built-in semantic type.
func Builtin(k ari.Kind) *Type { return &Type{Form: FormBuiltin, Builtin: k} }

// Any constructs the amm-base "any" semantic type: matches and passes
// through any defined value unconverted.
func Any() *Type { return &Type{Form: FormAny} }

// Integer constructs the amm-base "integer" semantic type used by the
// bit-not/bit-and/bit-or/bit-xor OPER family (spec.md §4.5: "integer
// only; promote as above"). It matches any of INT/UINT/VAST/UVAST and
// passes the value through unconverted, preserving the width and
// signedness the bitwise evaluator's own promotion needs; unlike
// Builtin(ari.KindInt), it never narrows a VAST/UVAST operand to int32.
func Integer() *Type { return &Type{Form: FormInteger} }

// TypedefUse constructs an unresolved reference to a TYPEDEF object.
func TypedefUse(ref *ari.Reference) *Type { return &Type{Form: FormTypedefUse, Ref: ref} }

// Union constructs a first-match union of alternative types.
func Union(alts ...*Type) *Type { return &Type{Form: FormUnion, Alternatives: alts} }

// UList constructs a uniform-list type.
func UList(item *Type) *Type { return &Type{Form: FormUList, ItemType: item} }

// UMap constructs a uniform-map type.
func UMap(key, val *Type) *Type { return &Type{Form: FormUMap, KeyType: key, ValType: val} }

// TBLT constructs a table-template type.
func TBLT(cols ...NamedType) *Type { return &Type{Form: FormTBLT, Columns: cols} }

// Sequence constructs a positional diverse-list type.
func Sequence(elems ...NamedType) *Type { return &Type{Form: FormSequence, Elements: elems} }

// Match result.
type MatchResult int

const (
	MatchPositive MatchResult = iota
	MatchNegative
	MatchUndefined
)

// effective returns t with any resolved typedef indirection followed.
func (t *Type) effective() *Type {
	for t.Form == FormTypedefUse && t.Resolved != nil {
		t = t.Resolved
	}
	return t
}

// Match reports whether v conforms to t.
func (t *Type) Match(v ari.Value) MatchResult {
	if v == nil || v.IsUndefined() {
		return MatchUndefined
	}
	eff := t.effective()
	switch eff.Form {
	case FormAny:
		return MatchPositive
	case FormInteger:
		if v.Kind().IsInteger() {
			return MatchPositive
		}
		return MatchNegative
	case FormBuiltin:
		if v.Kind() == eff.Builtin {
			return MatchPositive
		}
		if eff.Builtin.IsNumeric() && v.Kind().IsNumeric() {
			return MatchPositive
		}
		return MatchNegative
	case FormTypedefUse:
		// unresolved: cannot judge.
		return MatchUndefined
	case FormUnion:
		for _, alt := range eff.Alternatives {
			if alt.Match(v) == MatchPositive {
				return MatchPositive
			}
		}
		return MatchNegative
	case FormUList:
		ac, ok := ari.ACOf(v)
		if !ok {
			return MatchNegative
		}
		for _, item := range ac.Items {
			if eff.ItemType.Match(item) != MatchPositive {
				return MatchNegative
			}
		}
		return MatchPositive
	case FormUMap:
		am, ok := ari.AMOf(v)
		if !ok {
			return MatchNegative
		}
		for _, p := range am.Pairs {
			if eff.KeyType.Match(p.Key) != MatchPositive || eff.ValType.Match(p.Value) != MatchPositive {
				return MatchNegative
			}
		}
		return MatchPositive
	case FormTBLT:
		tbl, ok := ari.TBLOf(v)
		if !ok || tbl.NumCols != len(eff.Columns) {
			return MatchNegative
		}
		for _, row := range tbl.Rows {
			for i, col := range eff.Columns {
				if col.Type.Match(row[i]) != MatchPositive {
					return MatchNegative
				}
			}
		}
		return MatchPositive
	case FormSequence:
		ac, ok := ari.ACOf(v)
		if !ok || len(ac.Items) != len(eff.Elements) {
			return MatchNegative
		}
		for i, el := range eff.Elements {
			if el.Type.Match(ac.Items[i]) != MatchPositive {
				return MatchNegative
			}
		}
		return MatchPositive
	default:
		return MatchUndefined
	}
}

// Convert attempts to produce a value of type t from v, preserving the
// value where possible and failing (returning an error) where not.
func (t *Type) Convert(v ari.Value) (ari.Value, error) {
	if v == nil || v.IsUndefined() {
		return ari.Undefined, nil
	}
	eff := t.effective()
	switch eff.Form {
	case FormAny:
		return v, nil
	case FormInteger:
		if v.Kind().IsInteger() {
			return v, nil
		}
		return nil, fmt.Errorf("semtype: cannot convert %s to integer", v.Kind())
	case FormBuiltin:
		return convertBuiltin(eff.Builtin, v)
	case FormTypedefUse:
		return nil, fmt.Errorf("semtype: convert against unresolved typedef use %s", eff.Ref)
	case FormUnion:
		for _, alt := range eff.Alternatives {
			if alt.Match(v) == MatchPositive {
				return alt.Convert(v)
			}
		}
		return nil, fmt.Errorf("semtype: value does not match any union alternative")
	case FormUList:
		ac, ok := ari.ACOf(v)
		if !ok {
			return nil, fmt.Errorf("semtype: expected ac for ulist conversion")
		}
		out := make([]ari.Value, len(ac.Items))
		for i, item := range ac.Items {
			cv, err := eff.ItemType.Convert(item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return ari.NewAC(out...), nil
	default:
		if eff.Match(v) == MatchPositive {
			return v, nil
		}
		return nil, fmt.Errorf("semtype: no conversion rule for form %v", eff.Form)
	}
}

// convertBuiltin implements the value-preserving widenings and the explicit
// integer-to-boolean rule (zero is false, nonzero is true), failing
// otherwise; a boolean does not convert to an integer kind.
func convertBuiltin(target ari.Kind, v ari.Value) (ari.Value, error) {
	if v.Kind() == target {
		return v, nil
	}
	lit, isLit := v.(ari.Literal)

	switch target {
	case ari.KindBool:
		if b, ok := ari.Truthy(v); ok {
			return ari.Bool(b), nil
		}
		return nil, fmt.Errorf("semtype: cannot convert %s to bool", v.Kind())
	case ari.KindInt, ari.KindVast:
		if i, ok := ari.AsInt64(v); ok {
			if target == ari.KindInt {
				return ari.Int(int32(i)), nil
			}
			return ari.Vast(i), nil
		}
	case ari.KindUint, ari.KindUvast:
		if u, ok := ari.AsUint64(v); ok {
			if target == ari.KindUint {
				return ari.Uint(uint32(u)), nil
			}
			return ari.Uvast(u), nil
		}
	case ari.KindReal32, ari.KindReal64:
		if f, ok := ari.AsFloat64(v); ok {
			if target == ari.KindReal32 {
				return ari.Real32(float32(f)), nil
			}
			return ari.Real64(f), nil
		}
	case ari.KindTextstr:
		if isLit {
			return ari.Text(fmt.Sprintf("%v", lit.Raw())), nil
		}
	}
	return nil, fmt.Errorf("semtype: no conversion from %s to %s", v.Kind(), target)
}
