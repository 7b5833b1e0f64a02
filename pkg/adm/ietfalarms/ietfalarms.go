// Package ietfalarms registers the ietf/alarms ADM: the alarm-list
// introspection EDDs and the purge-alarms/compress-alarms maintenance
// CTRLs, wired to pkg/alarms.Index, grounded on
// original_source/src/refda/adm/ietf_alarms.c.
package ietfalarms

import (
	"sync"

	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/alarms"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Module registers the ietf/alarms namespace against the agent's shared
// alarms.Index (Agent.Alarms). It also owns the shelf list, a small piece
// of CTRL-mutable state the original C agent stubs out but names in its
// ensure-shelf/discard-shelf descriptions.
type Module struct {
	mu    sync.Mutex
	shelf map[string]struct{} // set of resource.String()|category.String() keys (see shelfKey)
}

// New constructs the alarms module.
func New() *Module { return &Module{shelf: make(map[string]struct{})} }

func (m *Module) Init(a *agent.Agent) error {
	ns, err := a.Store.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("alarms"), "2025-07-03")
	if err != nil {
		return err
	}

	identT := semtype.Builtin(ari.KindTextstr)
	if _, err := ns.AddObject(ari.KindIdent, &store.Descriptor{Name: ari.NameSegment("resource"), ValueType: identT}); err != nil {
		return err
	}
	if _, err := ns.AddObject(ari.KindIdent, &store.Descriptor{Name: ari.NameSegment("category"), ValueType: identT}); err != nil {
		return err
	}

	typedefs := []struct {
		name string
		t    *semtype.Type
	}{
		{"severity", semtype.Builtin(ari.KindUvast)},
		{"manager-state", semtype.Builtin(ari.KindTextstr)},
		{"shelf-tblt", semtype.TBLT(
			semtype.NamedType{Name: "resource", Type: semtype.Builtin(ari.KindTextstr)},
			semtype.NamedType{Name: "category", Type: semtype.Union(semtype.Builtin(ari.KindTextstr), semtype.Builtin(ari.KindNull))},
		)},
		{"tbl-row-filter", semtype.Builtin(ari.KindAC)},
	}
	for _, td := range typedefs {
		if _, err := ns.AddObject(ari.KindTypedef, &store.Descriptor{Name: ari.NameSegment(td.name), ValueType: td.t}); err != nil {
			return err
		}
	}

	if err := m.registerEDDs(a, ns); err != nil {
		return err
	}
	return m.registerCtrls(a, ns)
}

func (m *Module) registerEDDs(a *agent.Agent, ns *store.Namespace) error {
	_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{
		Name:      ari.NameSegment("alarm-list"),
		ValueType: semtype.Builtin(ari.KindTBL),
		Produce:   func(any, *store.Aparams) ari.Value { return a.Alarms.ToTable() },
	})
	if err != nil {
		return err
	}

	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{
		Name:      ari.NameSegment("resource-inventory"),
		ValueType: semtype.Builtin(ari.KindTBL),
		Produce: func(any, *store.Aparams) ari.Value {
			return distinctColumn(a.Alarms.Snapshot(), func(e *alarms.Entry) ari.Value { return e.Resource })
		},
	})
	if err != nil {
		return err
	}

	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{
		Name:      ari.NameSegment("category-inventory"),
		ValueType: semtype.Builtin(ari.KindTBL),
		Produce: func(any, *store.Aparams) ari.Value {
			return distinctColumn(a.Alarms.Snapshot(), func(e *alarms.Entry) ari.Value { return e.Category })
		},
	})
	if err != nil {
		return err
	}

	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{
		Name:      ari.NameSegment("shelf-list"),
		ValueType: semtype.Builtin(ari.KindTBL),
		Produce:   func(any, *store.Aparams) ari.Value { return m.shelfTable() },
	})
	return err
}

// distinctColumn renders a single-column inventory table out of an alarm
// projection function, skipping duplicate values and undefined categories
// (an alarm raised with no category contributes nothing to
// category-inventory), matching the original's "list all ... defined on
// the Agent" EDDs.
func distinctColumn(entries []*alarms.Entry, project func(*alarms.Entry) ari.Value) ari.Value {
	seen := make(map[string]struct{})
	var rows [][]ari.Value
	for _, e := range entries {
		v := project(e)
		if v == nil || ari.IsUndefined(v) || ari.Equal(v, ari.Null) {
			continue
		}
		k := v.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, []ari.Value{v})
	}
	return ari.NewTBL(1, rows)
}

func (m *Module) shelfTable() ari.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([][]ari.Value, 0, len(m.shelf))
	for k := range m.shelf {
		resource, category := splitShelfKey(k)
		rows = append(rows, []ari.Value{resource, category})
	}
	return ari.NewTBL(2, rows)
}

func (m *Module) registerCtrls(a *agent.Agent, ns *store.Namespace) error {
	filterT := semtype.Builtin(ari.KindAC)
	affectedT := semtype.Builtin(ari.KindUvast)
	shelfRowsT := semtype.Builtin(ari.KindTBL)

	ctrls := []struct {
		name      string
		params    []store.FormalParam
		resType   *semtype.Type
		execute   store.CtrlExecutor
	}{
		{
			name:    "purge-alarms",
			params:  []store.FormalParam{{Name: "filter", Type: filterT}},
			resType: affectedT,
			execute: purgeAlarmsCtrl(a),
		},
		{
			name:    "compress-alarms",
			params:  []store.FormalParam{{Name: "filter", Type: filterT}},
			resType: affectedT,
			execute: compressAlarmsCtrl(a),
		},
		{
			name:    "ensure-shelf",
			params:  []store.FormalParam{{Name: "rows", Type: shelfRowsT}},
			execute: m.ensureShelfCtrl(),
		},
		{
			name:    "discard-shelf",
			params:  []store.FormalParam{{Name: "rows", Type: shelfRowsT}},
			execute: m.discardShelfCtrl(),
		},
	}
	for _, c := range ctrls {
		if _, err := ns.AddObject(ari.KindCtrl, &store.Descriptor{
			Name:      ari.NameSegment(c.name),
			Params:    c.params,
			ValueType: c.resType,
			Execute:   c.execute,
		}); err != nil {
			return err
		}
	}
	return nil
}

// purgeAlarmsCtrl removes every alarm entry whose filter expression
// evaluates truthy, per testable property 18:
// purge(ari:/ac/(/label/severity, 2, //ietf/dtnma-agent/oper/eq)) removes
// exactly the entries whose severity equals 2.
func purgeAlarmsCtrl(a *agent.Agent) store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		filter, ok := ari.ACOf(aparams.Get(0))
		if !ok {
			return
		}
		var affected uint64
		a.Alarms.Purge(func(e *alarms.Entry) bool {
			match, err := evalRowFilter(a, filter, entryColumns(e))
			if err != nil || !match {
				return true // keep: no match, or evaluation failure
			}
			affected++
			return false // drop
		})
		cc.SetResult(ari.Uvast(affected))
	}
}

// compressAlarmsCtrl collapses history to one row for every matching
// entry, per testable property 19.
func compressAlarmsCtrl(a *agent.Agent) store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		filter, ok := ari.ACOf(aparams.Get(0))
		if !ok {
			return
		}
		affected := a.Alarms.Compress(func(e *alarms.Entry) bool {
			match, err := evalRowFilter(a, filter, entryColumns(e))
			return err == nil && match
		})
		cc.SetResult(ari.Uvast(uint64(affected)))
	}
}

func entryColumns(e *alarms.Entry) map[string]ari.Value {
	category := e.Category
	if category == nil {
		category = ari.Null
	}
	return map[string]ari.Value{
		"resource":     e.Resource,
		"category":     category,
		"severity":     ari.Uvast(uint64(e.Severity)),
		"time-created": ari.Timepoint(e.CreatedAt),
		"time-updated": ari.Timepoint(e.UpdatedAt),
	}
}

// evalRowFilter substitutes every /label/<name> reference in filter that
// names a column with that column's value, then evaluates the result.
// The alarm controls call it directly for each alarm entry; they do not go
// through pkg/eval's TblFilter.
func evalRowFilter(a *agent.Agent, filter *ari.AC, columns map[string]ari.Value) (bool, error) {
	substituted := substituteLabels(filter, columns)
	v, err := a.Evaluate(substituted)
	if err != nil {
		return false, err
	}
	truthy, _ := ari.Truthy(v)
	return truthy, nil
}

func substituteLabels(ac *ari.AC, columns map[string]ari.Value) *ari.AC {
	items := make([]ari.Value, len(ac.Items))
	for i, item := range ac.Items {
		if lit, ok := item.(ari.Literal); ok && lit.Kind() == ari.KindLabel {
			if name, ok := lit.Raw().(string); ok {
				if v, found := columns[name]; found {
					items[i] = v
					continue
				}
			}
		}
		if nested, ok := ari.ACOf(item); ok && nested != ac {
			sub := ari.NewAC(substituteLabels(nested, columns).Items...)
			if lit, isLit := item.(ari.Literal); isLit {
				if tag, tagged := lit.TypeTag(); tagged {
					sub = sub.WithTypeTag(tag)
				}
			}
			items[i] = sub
			continue
		}
		items[i] = item
	}
	return &ari.AC{Items: items}
}

func (m *Module) ensureShelfCtrl() store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		tbl, ok := ari.TBLOf(aparams.Get(0))
		if !ok {
			return
		}
		m.mu.Lock()
		for _, row := range tbl.Rows {
			if len(row) < 2 {
				continue
			}
			m.shelf[shelfKey(row[0], row[1])] = struct{}{}
		}
		m.mu.Unlock()
		cc.SetResult(ari.NewAC())
	}
}

func (m *Module) discardShelfCtrl() store.CtrlExecutor {
	return func(ctx any, aparams *store.Aparams) {
		cc := ctx.(*exec.CtrlContext)
		tbl, ok := ari.TBLOf(aparams.Get(0))
		if !ok {
			return
		}
		m.mu.Lock()
		for _, row := range tbl.Rows {
			if len(row) < 2 {
				continue
			}
			delete(m.shelf, shelfKey(row[0], row[1]))
		}
		m.mu.Unlock()
		cc.SetResult(ari.NewAC())
	}
}

func shelfKey(resource, category ari.Value) string {
	return resource.String() + "|" + category.String()
}

func splitShelfKey(k string) (ari.Value, ari.Value) {
	for i := 0; i < len(k); i++ {
		if k[i] == '|' {
			return ari.Text(k[:i]), ari.Text(k[i+1:])
		}
	}
	return ari.Text(k), ari.Null
}
