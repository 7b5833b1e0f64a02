// Package networkbase registers the ietf/network-base foundation ADM: the
// endpoint-addressing TYPEDEFs, per spec.md §6.1's Endpoint ARI-typed
// address contract. No CTRL parameter in the builtin ADMs references them;
// report-on and report-ctrl take only a template.
package networkbase

import (
	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

// Module registers the ietf/network-base namespace.
type Module struct{}

// New constructs the network-base module.
func New() Module { return Module{} }

func (Module) Init(a *agent.Agent) error {
	ns, err := a.Store.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("network-base"), "2025-07-03")
	if err != nil {
		return err
	}

	typedefs := []struct {
		name string
		t    *semtype.Type
	}{
		// endpoint: an opaque addressing value. Concrete transports (Unix
		// datagram path, proxy-socket session id) carry this as a textstr;
		// Bundle Protocol/ION endpoints would carry it as a byte string.
		{"endpoint", semtype.Union(semtype.Builtin(ari.KindTextstr), semtype.Builtin(ari.KindBytestr))},
		// endpoint-or-uri: an endpoint value or a bare URI string.
		{"endpoint-or-uri", semtype.Builtin(ari.KindTextstr)},
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
