// Package unixsock implements the hex-encoded ARI-over-Unix-datagram-
// socket transport of spec.md §6.2: each datagram carries one ASCII hex
// string, decoding to one canonical-binary-encoded ARI value or compound
// (EXECSET/RPTSET).
package unixsock

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"os"

	"github.com/jhuapl-dtnma/refda-go/pkg/refdaerr"
)

const maxDatagram = 65507

// Socket is a Unix datagram endpoint implementing transport.SenderReceiver.
type Socket struct {
	conn *net.UnixConn
	path string
}

// Listen binds a new Unix datagram socket at path, removing any stale
// socket file first (a crashed-without-cleanup prior run leaves one
// behind and bind would otherwise fail with "address already in use").
func Listen(path string) (*Socket, error) {
	addr := &net.UnixAddr{Name: path, Net: "unixgram"}
	_ = os.Remove(path)
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return nil, err
	}
	return &Socket{conn: conn, path: path}, nil
}

// Dial connects to a listening Unix datagram socket at path.
func Dial(path string) (*Socket, error) {
	addr := &net.UnixAddr{Name: path, Net: "unixgram"}
	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		return nil, err
	}
	return &Socket{conn: conn, path: path}, nil
}

// Send hex-encodes raw and writes it as a single datagram.
func (s *Socket) Send(ctx context.Context, raw []byte) error {
	encoded := hex.EncodeToString(raw)
	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(dl)
	}
	_, err := s.conn.Write([]byte(encoded))
	return err
}

// Recv reads one datagram and hex-decodes it.
func (s *Socket) Recv(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(dl)
	}
	buf := make([]byte, maxDatagram)
	n, err := s.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, refdaerr.TransportEOF()
		}
		return nil, err
	}
	return hex.DecodeString(string(buf[:n]))
}

// Close releases the socket, unlinking the bound path if this end was the
// Listen side.
func (s *Socket) Close() error {
	err := s.conn.Close()
	_ = os.Remove(s.path)
	return err
}
