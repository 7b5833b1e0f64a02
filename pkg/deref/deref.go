// Package deref implements dereference and actual-parameter binding: given
// an object-reference ARI, resolve it against the store and compute the
// itemized actual-parameter set from the formal defaults cascade.
package deref

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Result is a completed dereference: the resolved namespace/kind/descriptor
// plus the bound actual parameters.
type Result struct {
	Namespace *store.Namespace
	Kind      ari.Kind
	Desc      *store.Descriptor
	Aparams   *store.Aparams
}

// Dereference resolves ref against s and binds its actual parameters
// against the descriptor's formal parameter list.
func Dereference(s *store.Store, ref *ari.Reference) (Result, error) {
	res, err := s.Resolve(ref.Path)
	if err != nil {
		return Result{}, err
	}
	ap := BindParams(res.Desc.Params, ref.Params, ref.Named)
	return Result{Namespace: res.Namespace, Kind: res.Kind, Desc: res.Desc, Aparams: ap}, nil
}

// BindParams computes the itemized actual-parameter set for a formal
// parameter list, given positional and named actuals, following the
// cascade: positional arg, then named arg, then default, then undefined
// (setting AnyUndef). Each actual is then type-coerced through the formal
// parameter's semantic type; a coercion failure also marks the slot
// undefined and sets AnyUndef.
func BindParams(formals []store.FormalParam, positional []ari.Value, named map[string]ari.Value) *store.Aparams {
	out := &store.Aparams{
		Positional: make([]ari.Value, len(formals)),
		Named:      make(map[string]ari.Value, len(formals)),
	}

	for i, f := range formals {
		actual := pickActual(f, i, positional, named, out)
		coerced := actual
		if f.Type != nil && !ari.IsUndefined(actual) {
			cv, err := f.Type.Convert(actual)
			if err != nil {
				coerced = ari.Undefined
				out.AnyUndef = true
			} else {
				coerced = cv
			}
		}
		out.Positional[i] = coerced
		out.Named[f.Name] = coerced
	}
	return out
}

func pickActual(f store.FormalParam, i int, positional []ari.Value, named map[string]ari.Value, out *store.Aparams) ari.Value {
	if i < len(positional) && !ari.IsUndefined(positional[i]) {
		return positional[i]
	}
	if named != nil {
		if v, ok := named[f.Name]; ok && !ari.IsUndefined(v) {
			return v
		}
	}
	if f.Default != nil && !ari.IsUndefined(f.Default) {
		return f.Default
	}
	out.AnyUndef = true
	return ari.Undefined
}
