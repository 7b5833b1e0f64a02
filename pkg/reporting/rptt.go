package reporting

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/valprod"
)

// ResolveRPTT accepts either form spec.md §9 leaves open for a report
// template: a literal AC of report items, or a reference to a CONST/VAR/EDD
// object whose produced value is such an AC. Either way it returns the
// underlying item list.
func ResolveRPTT(s *store.Store, runCtx, agent any, target ari.Value) (*ari.AC, error) {
	if ref, ok := target.(*ari.Reference); ok {
		d, err := deref.Dereference(s, ref)
		if err != nil {
			return nil, err
		}
		switch d.Kind {
		case ari.KindConst, ari.KindVar, ari.KindEDD:
			v, err := valprod.Produce(d, runCtx, agent)
			if err != nil {
				return nil, err
			}
			target = v
		default:
			return nil, refdaerr.ExecBadType("report template reference does not resolve to a value-producing object")
		}
	}

	lit, ok := target.(ari.Literal)
	if !ok {
		return nil, refdaerr.ExecBadType("report template must be an AC literal or a reference producing one")
	}
	ac, ok := ari.ACOf(lit)
	if !ok {
		return nil, refdaerr.ExecBadType("report template must be an AC literal or a reference producing one")
	}
	return ac, nil
}

// WalkRPTT evaluates every item of a resolved report template: a
// reference to a CONST/VAR/EDD object is replaced by its produced value, a
// plain literal (including a nested AC standing in for an EXPR result) is
// passed through as-is, per spec.md §4.9.2.
func WalkRPTT(s *store.Store, runCtx, agent any, rptt *ari.AC) (*ari.AC, error) {
	out := make([]ari.Value, 0, len(rptt.Items))
	for _, item := range rptt.Items {
		ref, isRef := item.(*ari.Reference)
		if !isRef {
			out = append(out, item)
			continue
		}

		d, err := deref.Dereference(s, ref)
		if err != nil {
			out = append(out, ari.Undefined)
			continue
		}
		switch d.Kind {
		case ari.KindConst, ari.KindVar, ari.KindEDD:
			v, err := valprod.Produce(d, runCtx, agent)
			if err != nil {
				out = append(out, ari.Undefined)
				continue
			}
			out = append(out, v)
		default:
			out = append(out, item)
		}
	}
	result := ari.NewAC(out...)
	ac, _ := ari.ACOf(result)
	return ac, nil
}
