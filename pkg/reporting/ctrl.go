package reporting

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// ReportTargetCtrl builds the store.CtrlExecutor for the report-target
// control: resolve the given report template, walk it, and emit an ad hoc
// RPTSET under a null nonce, per spec.md §4.9.2. The returned function is
// registered under a CTRL descriptor by pkg/adm/dtnmaagent.
func ReportTargetCtrl(s *store.Store, reporter *Reporter) store.CtrlExecutor {
	return reportCtrl(s, reporter, false)
}

// ReportCtrlCtrl builds the store.CtrlExecutor for report-ctrl: the same
// template walk as report-target, but the emitted RPTSET carries the
// calling sequence's own nonce, so it correlates with whatever EXECSET
// triggered it instead of always being anonymous.
func ReportCtrlCtrl(s *store.Store, reporter *Reporter) store.CtrlExecutor {
	return reportCtrl(s, reporter, true)
}

func reportCtrl(s *store.Store, reporter *Reporter, useCallerNonce bool) store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc, ok := ctx.(*exec.CtrlContext)
		if !ok {
			return
		}
		target := aparams.Get(0)
		if ari.IsUndefined(target) {
			return
		}

		rptt, err := ResolveRPTT(s, cc.RunCtx(), cc.RunCtx().Agent, target)
		if err != nil {
			return
		}
		walked, err := WalkRPTT(s, cc.RunCtx(), cc.RunCtx().Agent, rptt)
		if err != nil {
			return
		}

		nonce := ari.Null
		if useCallerNonce {
			nonce = cc.RunCtx().Nonce
		}
		reporter.EmitAdhoc(nonce, target, walked.Items)
		cc.SetResult(ari.NewAC())
	}
}
