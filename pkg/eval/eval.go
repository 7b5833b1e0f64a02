// Package eval implements the expression evaluator: expansion of a
// reverse-Polish AC (splicing nested EXPRs inline), a stack machine over
// the expanded stream, and OPER dispatch through the store's registered
// evaluator callbacks.
package eval

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Producer resolves a non-OPER reference to a value, bridging to pkg/deref
// and pkg/valprod without introducing an import cycle (both packages sit
// below eval in the dependency order).
type Producer func(v ari.Value) (ari.Value, error)

// Expand walks the source AC, appending each item to a flat input queue; if
// an item is itself a literal AC tagged as EXPR, its elements splice inline
// so nested expressions compose.
func Expand(src *ari.AC) []ari.Value {
	out := make([]ari.Value, 0, len(src.Items))
	for _, item := range src.Items {
		if lit, isLit := item.(ari.Literal); isLit {
			if tag, ok := lit.TypeTag(); ok && tag == ari.KindAC {
				if nested, isAC := ari.ACOf(item); isAC {
					out = append(out, Expand(nested)...)
					continue
				}
			}
		}
		out = append(out, item)
	}
	return out
}

// Run executes the expanded stream as a stack machine: values push,
// object-references that resolve to OPER dereference, pop arity operands,
// coerce, dispatch, and push the result; everything else is resolved via
// produce (CONST/VAR/EDD) before being pushed. On exhaustion the stack must
// hold exactly one value.
func Run(s *store.Store, stream []ari.Value, produce Producer) (ari.Value, error) {
	var stack []ari.Value

	for _, item := range stream {
		ref, isRef := item.(*ari.Reference)
		if isRef && ref.Path.Type == ari.KindOper {
			res, err := s.Resolve(ref.Path)
			if err != nil {
				return nil, refdaerr.EvalFailed(err.Error())
			}
			desc := res.Desc
			arity := len(desc.OperandTypes)
			if len(stack) < arity {
				return nil, refdaerr.EvalFailed("operator stack underflow")
			}
			operands := stack[len(stack)-arity:]
			stack = stack[:len(stack)-arity]

			coerced := make([]ari.Value, arity)
			for i, v := range operands {
				ot := desc.OperandTypes[i]
				cv, err := ot.Type.Convert(v)
				if err != nil || ari.IsUndefined(cv) {
					return nil, refdaerr.EvalFailed("operand coercion failed for " + ot.Name)
				}
				coerced[i] = cv
			}
			if desc.Evaluate == nil {
				return nil, refdaerr.EvalFailed("oper has no registered evaluator")
			}
			result := desc.Evaluate(coerced)
			if ari.IsUndefined(result) {
				return nil, refdaerr.EvalFailed("oper evaluator left result undefined")
			}
			stack = append(stack, result)
			continue
		}

		if isRef {
			v, err := produce(ref)
			if err != nil {
				return nil, refdaerr.EvalFailed(err.Error())
			}
			stack = append(stack, v)
			continue
		}
		stack = append(stack, item)
	}

	if len(stack) != 1 {
		return nil, refdaerr.EvalNonSingle(len(stack))
	}
	return stack[0], nil
}

// Evaluate is the convenience entry point: expand then run.
func Evaluate(s *store.Store, expr *ari.AC, produce Producer) (ari.Value, error) {
	return Run(s, Expand(expr), produce)
}

// DerefProducer builds a Producer backed by pkg/deref + the supplied
// value-production function, for callers that already have a dereference
// result resolver on hand (kept generic here to avoid an eval->valprod
// import, since valprod does not need eval).
func DerefProducer(s *store.Store, produceFn func(d deref.Result) (ari.Value, error)) Producer {
	return func(v ari.Value) (ari.Value, error) {
		ref, ok := v.(*ari.Reference)
		if !ok {
			return v, nil
		}
		d, err := deref.Dereference(s, ref)
		if err != nil {
			return nil, err
		}
		return produceFn(d)
	}
}
