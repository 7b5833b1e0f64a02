package exec

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
	"github.com/jhuapl-dtnma/refda-go/pkg/valprod"
)

// Expand inserts target (a CTRL reference, a value-producing reference, or
// a macro AC) into seq starting at insertionIndex, recursing through
// CONST/VAR/EDD references and nested macros, per spec.md §4.7.1. It
// returns how many items were inserted, so callers splicing a sequence of
// targets can advance their own insertion index by the right amount.
func Expand(seq *Sequence, insertionIndex int, target ari.Value) (int, error) {
	if ref, ok := target.(*ari.Reference); ok {
		return expandReference(seq, insertionIndex, ref)
	}

	if lit, ok := target.(ari.Literal); ok {
		if ac, isAC := ari.ACOf(lit); isAC {
			return expandMacro(seq, insertionIndex, ac)
		}
		err := refdaerr.ExecBadType("execution target literal is not a macro (AC)")
		seq.recordInvalid(target, err)
		return 0, err
	}

	err := refdaerr.ExecBadType("execution target is not a reference or macro literal")
	seq.recordInvalid(target, err)
	return 0, err
}

func expandReference(seq *Sequence, insertionIndex int, ref *ari.Reference) (int, error) {
	d, err := deref.Dereference(seq.RunCtx.Store, ref)
	if err != nil {
		wrapped := refdaerr.ExecDerefFailed(err)
		seq.recordInvalid(ref, wrapped)
		return 0, wrapped
	}

	switch d.Kind {
	case ari.KindCtrl:
		item := &Item{Seq: seq, OriginalRef: ref, Deref: d}
		item.setStage(StagePending)
		seq.insert(insertionIndex, item)
		return 1, nil
	case ari.KindConst, ari.KindVar, ari.KindEDD:
		v, err := valprod.Produce(d, seq.RunCtx, seq.RunCtx.Agent)
		if err != nil {
			wrapped := refdaerr.ExecProdFailed(err)
			seq.recordInvalid(ref, wrapped)
			return 0, wrapped
		}
		return Expand(seq, insertionIndex, v)
	default:
		err := refdaerr.ExecBadType("reference target resolves to a non-executable, non-value-producing object kind")
		seq.recordInvalid(ref, err)
		return 0, err
	}
}

func expandMacro(seq *Sequence, insertionIndex int, ac *ari.AC) (int, error) {
	idx := insertionIndex
	total := 0
	var firstErr error
	for _, member := range ac.Items {
		n, err := Expand(seq, idx, member)
		idx += n
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}
