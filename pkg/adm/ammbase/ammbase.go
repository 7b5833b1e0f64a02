// Package ammbase registers the ietf/amm-base foundation ADM: the
// TYPEDEFs every other ADM's formal parameters reference when a parameter
// or result is typed generically rather than by a concrete built-in kind,
// per spec.md §6.3's registration order ("IETF foundation ADMs ...
// registered before any that reference them").
package ammbase

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Module registers the ietf/amm-base namespace.
type Module struct{}

// New constructs the amm-base module.
func New() Module { return Module{} }

func (Module) Init(a *agent.Agent) error {
	ns, err := a.Store.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("amm-base"), "2025-07-03")
	if err != nil {
		return err
	}

	typedefs := []struct {
		name string
		t    *semtype.Type
	}{
		{"any", semtype.Any()},
		{"id-text", semtype.Builtin(ari.KindTextstr)},
		{"id-int", semtype.Builtin(ari.KindVast)},
		// value-obj: a reference to any store object.
		{"value-obj", semtype.Builtin(ari.KindObjectRef)},
		// eval-tgt: an EXPR, the reverse-Polish AC pkg/eval runs.
		{"eval-tgt", semtype.Builtin(ari.KindAC)},
		// exec-tgt: a MAC, the AC of execution targets pkg/exec expands.
		{"exec-tgt", semtype.Builtin(ari.KindAC)},
		// rpt-tgt: an RPTT, either a literal AC of report-producing items or
		// a reference to one.
		{"rpt-tgt", semtype.Union(semtype.Builtin(ari.KindAC), semtype.Builtin(ari.KindObjectRef))},
	}
	for _, td := range typedefs {
		if _, err := ns.AddObject(ari.KindTypedef, &store.Descriptor{
			Name:      ari.NameSegment(td.name),
			ValueType: td.t,
		}); err != nil {
			return err
		}
	}
	return nil
}
