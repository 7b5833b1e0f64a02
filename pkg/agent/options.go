package agent

import (
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/transport"
)

// Option configures an Agent, mirroring the teacher's functional-options
// constructor (pkg/agent/options.go's WithConfig/WithLogger/...).
type Option func(*Agent) error

// WithConfig overrides the default queue/history sizing.
func WithConfig(cfg Config) Option {
	return func(a *Agent) error {
		a.cfg = cfg
		return nil
	}
}

// WithTransport sets the duplex the ingress/egress workers read from and
// write to. Start fails without one.
func WithTransport(t transport.SenderReceiver) Option {
	return func(a *Agent) error {
		a.transport = t
		return nil
	}
}

// WithACLResolver overrides the default permit-all ACL hook of spec.md
// §4.7.5.
func WithACLResolver(r ACLResolver) Option {
	return func(a *Agent) error {
		a.aclResolver = r
		return nil
	}
}

// WithClock overrides the agent's notion of now, for deterministic tests of
// TBR scheduling and report reference times.
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) error {
		a.clock = clock
		return nil
	}
}
