// Package demo registers a worked operator data model: a single
// negative-enum namespace holding one mutable VAR and a derived EDD,
// showing how an ODM differs from the builtin ADMs in pkg/adm (mutable
// model id; after Init registers it, its VAR is mutated only through the
// generic var-store/var-reset CTRLs in pkg/adm/dtnmaagent rather than any
// ODM-specific code).
package demo

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Module registers the example ODM. Unlike the builtin ADMs, its Model
// segment is a negative enumeration, which store.Namespace.IsADM reports
// as false: the enumeration EDDs in pkg/adm/dtnmaagent always list it,
// since include-adm=false hides only ADM namespaces.
type Module struct{}

// New constructs the demo ODM module.
func New() Module { return Module{} }

func (Module) Init(a *agent.Agent) error {
	ns, err := a.Store.AddNamespace(ari.NameSegment("example"), ari.EnumSegment(-1), "1")
	if err != nil {
		return err
	}

	if _, err := ns.AddObject(ari.KindConst, &store.Descriptor{
		Name:       ari.NameSegment("description"),
		ValueType:  semtype.Builtin(ari.KindTextstr),
		ConstValue: ari.Text("example operator data model: a mutable request counter"),
	}); err != nil {
		return err
	}

	if _, err := ns.AddObject(ari.KindVar, &store.Descriptor{
		Name:         ari.NameSegment("request-count"),
		ValueType:    semtype.Builtin(ari.KindUvast),
		InitialValue: ari.Uvast(0),
		CurrentValue: ari.Uvast(0),
	}); err != nil {
		return err
	}

	requestCount, _ := ns.FindObjectByName(ari.KindVar, "request-count")
	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{
		Name:      ari.NameSegment("request-count-doubled"),
		ValueType: semtype.Builtin(ari.KindUvast),
		Produce: func(any, *store.Aparams) ari.Value {
			n, _ := ari.AsUint64(requestCount.Load())
			return ari.Uvast(n * 2)
		},
	})
	return err
}
