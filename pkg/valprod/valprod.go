// Package valprod implements value production: reading CONST/VAR state and
// invoking EDD producer callbacks with an actual-parameter context.
package valprod

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Context carries what an EDD producer callback needs: the run context
// (opaque to this package; concretely *exec.RunContext), the bound actual
// parameters, and the agent handle (also opaque here to avoid an import
// cycle with pkg/agent).
type Context struct {
	RunCtx  any
	Agent   any
	Aparams *store.Aparams
	result  ari.Value
}

// SetResult is called by an EDD producer callback to report its produced
// value.
func (c *Context) SetResult(v ari.Value) { c.result = v }

// Produce computes the value for a non-CTRL dereference result: CONST
// returns a deep copy of its stored literal, VAR returns a deep copy of its
// current value, EDD invokes the registered producer callback.
func Produce(d deref.Result, runCtx, agent any) (ari.Value, error) {
	switch d.Kind {
	case ari.KindConst:
		return deepCopy(d.Desc.ConstValue), nil
	case ari.KindVar:
		return deepCopy(d.Desc.Load()), nil
	case ari.KindEDD:
		if d.Desc.Produce == nil {
			return nil, refdaerr.ProdFailed("edd has no registered producer")
		}
		pctx := &Context{RunCtx: runCtx, Agent: agent, Aparams: d.Aparams}
		v := d.Desc.Produce(pctx, d.Aparams)
		if v != nil {
			pctx.result = v
		}
		if ari.IsUndefined(pctx.result) {
			return nil, refdaerr.ProdFailed("edd producer left result undefined")
		}
		return pctx.result, nil
	default:
		return nil, refdaerr.ProdFailed("kind is not value-producing")
	}
}

// deepCopy returns an equal-but-independent value. ARI values are
// immutable by construction except for the mutable CurrentValue slot a VAR
// descriptor owns directly, so a deep copy here only needs to ensure a
// caller mutating a returned structured literal's backing slices can't
// reach back into stored state for AC/AM/TBL payloads.
func deepCopy(v ari.Value) ari.Value {
	if v == nil {
		return ari.Undefined
	}
	switch lit := v.(type) {
	case ari.Literal:
		if ac, ok := ari.ACOf(lit); ok {
			items := make([]ari.Value, len(ac.Items))
			for i, it := range ac.Items {
				items[i] = deepCopy(it)
			}
			return ari.NewAC(items...)
		}
		if am, ok := ari.AMOf(lit); ok {
			pairs := make([]ari.Pair, len(am.Pairs))
			for i, p := range am.Pairs {
				pairs[i] = ari.Pair{Key: deepCopy(p.Key), Value: deepCopy(p.Value)}
			}
			return ari.NewAM(pairs...)
		}
		if tbl, ok := ari.TBLOf(lit); ok {
			rows := make([][]ari.Value, len(tbl.Rows))
			for i, row := range tbl.Rows {
				newRow := make([]ari.Value, len(row))
				for j, cell := range row {
					newRow[j] = deepCopy(cell)
				}
				rows[i] = newRow
			}
			return ari.NewTBL(tbl.NumCols, rows)
		}
		return lit
	default:
		return v
	}
}
