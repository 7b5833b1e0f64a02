// Package transport defines the Sender/Receiver abstraction the agent's
// ingress/egress workers use to move raw ARI bytes across a channel,
// independent of what that channel actually is (spec.md §6.1). Concrete
// channels live in the unixsock and proxysock subpackages.
package transport

import "context"

// Sender writes one framed message (already binary-encoded ARI bytes) to
// a transport.
type Sender interface {
	Send(ctx context.Context, raw []byte) error
}

// Receiver reads one framed message from a transport, blocking until one
// arrives or ctx is cancelled. A nil error with nil bytes never occurs;
// end-of-stream is reported as refdaerr.ErrTransportEOF.
type Receiver interface {
	Recv(ctx context.Context) ([]byte, error)
}

// SenderReceiver is the combined duplex a transport implementation
// typically provides.
type SenderReceiver interface {
	Sender
	Receiver
	Close() error
}
