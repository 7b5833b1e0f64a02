// Package dtnmaagent registers the ietf/dtnma-agent ADM: the foundation
// introspection EDDs and control-flow CTRLs (inspect, wait-for, wait-until,
// wait-cond, if-then-else, catch, report-on, report-ctrl, var-store,
// var-reset, ensure-rule-enabled) plus the full arithmetic/comparison OPER
// table, grounded on original_source/src/refda/adm/ietf_dtnma_agent.c.
package dtnmaagent

import (
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/eval"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/reporting"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/valprod"
)

// swVendor and swVersion are the S1 echo scenario's constants.
const (
	swVendor  = "JHU/APL"
	swVersion = "0.1.0"
)

// Module registers the ietf/dtnma-agent namespace. Construct with New and
// pass to Agent.RegisterBuiltins after the three foundation ADMs it
// references TYPEDEFs from.
type Module struct{}

// New constructs the dtnma-agent module.
func New() Module { return Module{} }

func param(name string, t *semtype.Type) store.FormalParam { return store.FormalParam{Name: name, Type: t} }

func paramDefault(name string, t *semtype.Type, def ari.Value) store.FormalParam {
	return store.FormalParam{Name: name, Type: t, Default: def}
}

func (Module) Init(a *agent.Agent) error {
	ns, err := a.Store.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "2025-07-03")
	if err != nil {
		return err
	}

	if err := registerEDDs(a, ns); err != nil {
		return err
	}
	if err := registerCtrls(a, ns); err != nil {
		return err
	}
	return registerOpers(ns)
}

func registerEDDs(a *agent.Agent, ns *store.Namespace) error {
	textEDD := func(name, value string) error {
		_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{
			Name:      ari.NameSegment(name),
			ValueType: semtype.Builtin(ari.KindTextstr),
			Produce:   func(any, *store.Aparams) ari.Value { return ari.Text(value) },
		})
		return err
	}
	if err := textEDD("sw-vendor", swVendor); err != nil {
		return err
	}
	if err := textEDD("sw-version", swVersion); err != nil {
		return err
	}

	counter := func(name string, read func() uint64) error {
		_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{
			Name:      ari.NameSegment(name),
			ValueType: semtype.Builtin(ari.KindUvast),
			Produce:   func(any, *store.Aparams) ari.Value { return ari.Uvast(read()) },
		})
		return err
	}
	counters := []struct {
		name string
		read func() uint64
	}{
		{"num-msg-rx", func() uint64 { return a.Counters().ExecsetsReceived }},
		{"num-msg-rx-failed", func() uint64 { return a.Counters().DereferenceFailures }},
		{"num-msg-tx", func() uint64 { return a.Counters().ReportsSent }},
		{"num-exec-succeeded", func() uint64 { return a.Counters().CtrlsSucceeded }},
		{"num-exec-failed", func() uint64 { return a.Counters().CtrlsFailed }},
		{"num-rules-fired", func() uint64 { return a.Counters().RulesFired }},
	}
	for _, c := range counters {
		if err := counter(c.name, c.read); err != nil {
			return err
		}
	}

	return registerEnumerationEDDs(a, ns)
}

// objListing is the shared shape of the odm-list/typedef-list/const-list/
// var-list/sbr-list/tbr-list EDDs: a table of (org-name, model-name,
// object-name) rows for every matching descriptor, filtered by the
// include-adm toggle (spec.md's own Open Question on enumeration EDDs,
// resolved per SPEC_FULL.md §5 as a parameter rather than the original's
// hardcoded ODM-only exclusion).
func objListing(a *agent.Agent, kind ari.Kind) store.EDDProducer {
	return func(_ any, aparams *store.Aparams) ari.Value {
		includeADM, _ := ari.AsBool(aparams.GetNamed("include-adm"))
		var rows [][]ari.Value
		for _, ns := range a.Store.Namespaces() {
			if ns.IsADM() && !includeADM {
				continue
			}
			for _, d := range ns.ListObjects(kind, false) {
				rows = append(rows, []ari.Value{
					ari.Text(ns.Org.String()),
					ari.Text(ns.Model.String()),
					ari.Text(d.Name.String()),
				})
			}
		}
		return ari.NewTBL(3, rows)
	}
}

func registerEnumerationEDDs(a *agent.Agent, ns *store.Namespace) error {
	listings := []struct {
		name string
		kind ari.Kind
	}{
		{"odm-list", ari.KindTypedef}, // placeholder kind, overwritten below
		{"typedef-list", ari.KindTypedef},
		{"const-list", ari.KindConst},
		{"var-list", ari.KindVar},
		{"sbr-list", ari.KindSBR},
		{"tbr-list", ari.KindTBR},
	}
	boolT := semtype.Builtin(ari.KindBool)
	for _, l := range listings {
		kind := l.kind
		if l.name == "odm-list" {
			// odm-list enumerates namespaces, not one object kind; it is
			// built from Namespaces directly rather than objListing.
			_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{
				Name:      ari.NameSegment("odm-list"),
				ValueType: semtype.Builtin(ari.KindTBL),
				Params:    []store.FormalParam{paramDefault("include-adm", boolT, ari.Bool(false))},
				Produce: func(_ any, aparams *store.Aparams) ari.Value {
					includeADM, _ := ari.AsBool(aparams.GetNamed("include-adm"))
					var rows [][]ari.Value
					for _, n := range a.Store.Namespaces() {
						if n.IsADM() && !includeADM {
							continue
						}
						rows = append(rows, []ari.Value{ari.Text(n.Org.String()), ari.Text(n.Model.String()), ari.Text(n.Revision)})
					}
					return ari.NewTBL(3, rows)
				},
			})
			if err != nil {
				return err
			}
			continue
		}
		_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{
			Name:      ari.NameSegment(l.name),
			ValueType: semtype.Builtin(ari.KindTBL),
			Params:    []store.FormalParam{paramDefault("include-adm", boolT, ari.Bool(false))},
			Produce:   objListing(a, kind),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func acParam(v ari.Value) (*ari.AC, bool) {
	return ari.ACOf(v)
}

func registerCtrls(a *agent.Agent, ns *store.Namespace) error {
	anyT := semtype.Any()
	valueObjT := semtype.Builtin(ari.KindObjectRef)
	evalTgtT := semtype.Builtin(ari.KindAC)
	execTgtT := semtype.Builtin(ari.KindAC)
	rptTgtT := semtype.Union(semtype.Builtin(ari.KindAC), semtype.Builtin(ari.KindObjectRef))
	tdT := semtype.Builtin(ari.KindTD)
	tpT := semtype.Builtin(ari.KindTP)
	boolT := semtype.Builtin(ari.KindBool)

	ctrls := []struct {
		name     string
		params   []store.FormalParam
		resType  *semtype.Type
		execute  store.CtrlExecutor
	}{
		{
			name:    "inspect",
			params:  []store.FormalParam{param("ref", valueObjT)},
			resType: anyT,
			execute: inspectCtrl(a),
		},
		{
			name:   "wait-for",
			params: []store.FormalParam{param("duration", tdT)},
			execute: func(ctx any, aparams *store.Aparams) {
				cc := ctx.(*exec.CtrlContext)
				d, ok := durationOf(aparams.Get(0))
				if !ok {
					return
				}
				exec.WaitForDuration(cc, d)
			},
		},
		{
			name:   "wait-until",
			params: []store.FormalParam{param("time", tpT)},
			execute: func(ctx any, aparams *store.Aparams) {
				cc := ctx.(*exec.CtrlContext)
				t, ok := timeOf(aparams.Get(0))
				if !ok {
					return
				}
				exec.WaitUntilTime(cc, t)
			},
		},
		{
			name:   "wait-cond",
			params: []store.FormalParam{param("condition", evalTgtT)},
			execute: func(ctx any, aparams *store.Aparams) {
				cc := ctx.(*exec.CtrlContext)
				cond, ok := acParam(aparams.Get(0))
				if !ok {
					return
				}
				exec.WaitCond(cc, cond, time.Second, a.Evaluate)
			},
		},
		{
			name: "if-then-else",
			params: []store.FormalParam{
				param("condition", evalTgtT),
				paramDefault("on-truthy", execTgtT, ari.Undefined),
				paramDefault("on-falsy", execTgtT, ari.Undefined),
			},
			resType: boolT,
			execute: func(ctx any, aparams *store.Aparams) {
				cc := ctx.(*exec.CtrlContext)
				cond, ok := acParam(aparams.Get(0))
				if !ok {
					return
				}
				exec.IfThenElse(cc, cond, aparams.Get(1), aparams.Get(2), a.Evaluate)
			},
		},
		{
			name: "catch",
			params: []store.FormalParam{
				param("try", execTgtT),
				paramDefault("on-failure", execTgtT, ari.Undefined),
			},
			execute: func(ctx any, aparams *store.Aparams) {
				cc := ctx.(*exec.CtrlContext)
				exec.Catch(cc, aparams.Get(0), aparams.Get(1))
			},
		},
		{
			name:    "report-on",
			params:  []store.FormalParam{param("template", rptTgtT)},
			execute: reporting.ReportTargetCtrl(a.Store, a.Reporter()),
		},
		{
			name:    "report-ctrl",
			params:  []store.FormalParam{param("template", rptTgtT)},
			execute: reporting.ReportCtrlCtrl(a.Store, a.Reporter()),
		},
		{
			name: "var-store",
			params: []store.FormalParam{
				param("target", valueObjT),
				param("value", anyT),
			},
			execute: varStoreCtrl(a),
		},
		{
			name:    "var-reset",
			params:  []store.FormalParam{param("target", valueObjT)},
			execute: varResetCtrl(a),
		},
		{
			name: "ensure-rule-enabled",
			params: []store.FormalParam{
				param("target", valueObjT),
				param("enabled", boolT),
			},
			execute: ensureRuleEnabledCtrl(a),
		},
	}

	for _, c := range ctrls {
		if _, err := ns.AddObject(ari.KindCtrl, &store.Descriptor{
			Name:       ari.NameSegment(c.name),
			Params:     c.params,
			ValueType:  c.resType,
			Execute:    c.execute,
		}); err != nil {
			return err
		}
	}
	return nil
}

// inspectCtrl dereferences its "ref" parameter against the store and
// returns whatever that object would itself produce, the same lookup path
// pkg/valprod uses for CONST/VAR/EDD operands. This is the S1 echo
// scenario: inspect(EDD/sw-vendor) yields "JHU/APL".
func inspectCtrl(a *agent.Agent) store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		ref, ok := aparams.Get(0).(*ari.Reference)
		if !ok {
			return
		}
		d, err := deref.Dereference(a.Store, ref)
		if err != nil {
			return
		}
		v, err := valprod.Produce(d, cc.RunCtx(), a)
		if err != nil {
			return
		}
		cc.SetResult(v)
	}
}

func varStoreCtrl(a *agent.Agent) store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		d, ok := resolveVar(a, aparams.Get(0))
		if !ok {
			return
		}
		d.StoreValue(aparams.Get(1))
		cc.SetResult(ari.NewAC())
	}
}

func varResetCtrl(a *agent.Agent) store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		d, ok := resolveVar(a, aparams.Get(0))
		if !ok {
			return
		}
		d.Reset()
		cc.SetResult(ari.NewAC())
	}
}

func resolveVar(a *agent.Agent, v ari.Value) (*store.Descriptor, bool) {
	ref, ok := v.(*ari.Reference)
	if !ok {
		return nil, false
	}
	res, err := a.Store.Resolve(ref.Path)
	if err != nil || res.Kind != ari.KindVar {
		return nil, false
	}
	return res.Desc, true
}

func ensureRuleEnabledCtrl(a *agent.Agent) store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		ref, ok := aparams.Get(0).(*ari.Reference)
		if !ok {
			return
		}
		res, err := a.Store.Resolve(ref.Path)
		if err != nil {
			return
		}
		enabled, ok := ari.AsBool(aparams.Get(1))
		if !ok {
			return
		}

		switch res.Kind {
		case ari.KindTBR:
			if enabled {
				a.Rules.EnableTBR(res.Desc)
			} else {
				a.Rules.DisableTBR(res.Desc)
			}
		case ari.KindSBR:
			if enabled {
				a.Rules.EnableSBR(res.Desc)
			} else {
				a.Rules.DisableSBR(res.Desc)
			}
		default:
			return
		}
		cc.SetResult(ari.NewAC())
	}
}

func durationOf(v ari.Value) (time.Duration, bool) {
	lit, ok := v.(ari.Literal)
	if !ok || lit.Kind() != ari.KindTD {
		return 0, false
	}
	d, ok := lit.Raw().(time.Duration)
	return d, ok
}

func timeOf(v ari.Value) (time.Time, bool) {
	lit, ok := v.(ari.Literal)
	if !ok || lit.Kind() != ari.KindTP {
		return time.Time{}, false
	}
	t, ok := lit.Raw().(time.Time)
	return t, ok
}

// registerOpers registers the full arithmetic/bitwise/boolean/comparison
// OPER table of pkg/eval's RegisterArithmeticOpers, plus an "eq" alias for
// "compare-eq" matching spec.md's own shorthand reference to
// //ietf/dtnma-agent/oper/eq in its purge-filter example. Per spec.md
// §4.5's coercion table, bool-not/and/or/xor's operands are typed BOOL and
// bit-not/and/or/xor's are typed "integer" (semtype.Integer, matching
// original_source's TYPEDEF/INTEGER use); everything else stays "any"
// exactly as original_source's add/sub/multiply/etc. register it, since
// their own numeric promotion already handles any ARI numeric kind.
func registerOpers(ns *store.Namespace) error {
	anyT := semtype.Any()
	boolT := semtype.Builtin(ari.KindBool)
	integerT := semtype.Integer()
	unary := []string{"negate", "bitnot", "boolnot"}
	bitwise := []string{"bitnot", "bitand", "bitor", "bitxor"}
	boolean := []string{"boolnot", "booland", "boolor", "boolxor"}

	operandType := func(tableName string) *semtype.Type {
		switch {
		case contains(bitwise, tableName):
			return integerT
		case contains(boolean, tableName):
			return boolT
		default:
			return anyT
		}
	}

	registerOne := func(wireName, tableName string) error {
		evaluator := eval.RegisterArithmeticOpers[tableName]
		ot := operandType(tableName)
		var operands []semtype.NamedType
		if contains(unary, tableName) {
			operands = []semtype.NamedType{{Name: "operand", Type: ot}}
		} else {
			operands = []semtype.NamedType{{Name: "left", Type: ot}, {Name: "right", Type: ot}}
		}
		_, err := ns.AddObject(ari.KindOper, &store.Descriptor{
			Name:         ari.NameSegment(wireName),
			OperandTypes: operands,
			ResultType:   ot,
			Evaluate:     evaluator,
		})
		return err
	}

	// wire name mapping: pkg/eval's table keys are compact identifiers
	// ("compareeq"); the ADM's object names follow the original source's
	// hyphenated spelling ("compare-eq").
	wireNames := map[string]string{
		"negate": "negate", "add": "add", "sub": "sub", "multiply": "multiply",
		"divide": "divide", "remainder": "remainder", "bitnot": "bit-not",
		"bitand": "bit-and", "bitor": "bit-or", "bitxor": "bit-xor",
		"boolnot": "bool-not", "booland": "bool-and", "boolor": "bool-or", "boolxor": "bool-xor",
		"compareeq": "compare-eq", "comparene": "compare-ne", "comparegt": "compare-gt",
		"comparege": "compare-ge", "comparelt": "compare-lt", "comparele": "compare-le",
		"listget": "list-get", "mapget": "map-get",
	}
	for tableName, wireName := range wireNames {
		if err := registerOne(wireName, tableName); err != nil {
			return err
		}
	}
	// "eq" is an alias for compare-eq, registered separately since the
	// store rejects duplicate names within one (namespace, kind) bucket.
	if err := registerOne("eq", "compareeq"); err != nil {
		return err
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
