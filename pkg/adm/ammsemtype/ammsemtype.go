// Package ammsemtype registers the ietf/amm-semtype foundation ADM: the
// TYPEDEFs that let an object's own type be carried as data (a type tag or
// a compound type descriptor), and an EDD enumerating the built-in kinds
// pkg/semtype understands, per spec.md §6.3's foundation-ADM set.
package ammsemtype

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Module registers the ietf/amm-semtype namespace.
type Module struct{}

// New constructs the amm-semtype module.
func New() Module { return Module{} }

// builtinKinds lists every scalar/structured ari.Kind the type system
// exposes to a "builtin-kinds" enumeration, mirroring what a manager would
// need to know to build a TYPEDEF referencing one by name.
var builtinKinds = []ari.Kind{
	ari.KindBool, ari.KindInt, ari.KindUint, ari.KindVast, ari.KindUvast,
	ari.KindReal32, ari.KindReal64, ari.KindTextstr, ari.KindBytestr,
	ari.KindTP, ari.KindTD, ari.KindLabel, ari.KindAriType,
	ari.KindAC, ari.KindAM, ari.KindTBL,
}

func (Module) Init(a *agent.Agent) error {
	ns, err := a.Store.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("amm-semtype"), "2025-07-03")
	if err != nil {
		return err
	}

	typedefs := []struct {
		name string
		t    *semtype.Type
	}{
		// type-name: a Kind value carried as data, used by union/list/map
		// TYPEDEFs that need to name a builtin kind without hardcoding it.
		{"type-name", semtype.Builtin(ari.KindAriType)},
		// type-spec: either a bare type-name or a compound semantic type
		// descriptor (an AM of form/parameters), as amm-semtype's own
		// TYPEDEF objects carry in their ValueType.
		{"type-spec", semtype.Union(semtype.Builtin(ari.KindAriType), semtype.Builtin(ari.KindAM))},
	}
	for _, td := range typedefs {
		if _, err := ns.AddObject(ari.KindTypedef, &store.Descriptor{
			Name:      ari.NameSegment(td.name),
			ValueType: td.t,
		}); err != nil {
			return err
		}
	}

	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{
		Name:      ari.NameSegment("builtin-kinds"),
		ValueType: semtype.UList(semtype.Builtin(ari.KindAriType)),
		Produce: func(ctx any, _ *store.Aparams) ari.Value {
			items := make([]ari.Value, len(builtinKinds))
			for i, k := range builtinKinds {
				items[i] = ari.TypeTagValue(k)
			}
			return ari.NewAC(items...)
		},
	})
	return err
}
