// Package proxysock implements the proxy-client transport of spec.md
// §6.3: an MCP server exposing ARI exchange as two tools, submit-execset
// and poll-reports, so an MCP-capable manager can drive the agent without
// a raw hex socket. Grounded on the teacher's own (deleted) MCP
// integration, which wired the same mark3labs/mcp-go server/tool API for
// an unrelated (codebase search) tool surface.
package proxysock

import (
	"context"
	"encoding/hex"
	"fmt"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/aricbor"
	"github.com/jhuapl-dtnma/refda-go/pkg/reporting"
)

// Ingress is the callback invoked with a decoded EXECSET/ARI payload
// submitted through the submit-execset tool.
type Ingress func(ctx context.Context, raw []byte) error

// Server wraps an mcp-go server exposing the agent's ingress/egress as
// MCP tools.
type Server struct {
	mcp     *server.MCPServer
	ingress Ingress
	queue   *reporting.Queue
}

// New constructs a proxy server. name/version identify the agent to MCP
// clients during the initialize handshake.
func New(name, version string, ingress Ingress, queue *reporting.Queue) *Server {
	s := &Server{ingress: ingress, queue: queue}

	mcpServer := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	mcpServer.AddTool(
		mcpsdk.NewTool("submit-execset",
			mcpsdk.WithDescription("Submit a hex-encoded canonical-binary ARI EXECSET for execution."),
			mcpsdk.WithString("hex",
				mcpsdk.Required(),
				mcpsdk.Description("Canonical binary ARI EXECSET, hex-encoded."),
			),
		),
		s.handleSubmit,
	)
	mcpServer.AddTool(
		mcpsdk.NewTool("poll-reports",
			mcpsdk.WithDescription("Return every RPTSET the agent still retains in its report history, hex-encoded one per line; polling does not remove them."),
		),
		s.handlePoll,
	)

	s.mcp = mcpServer
	return s
}

// submitHex decodes a hex-encoded ARI payload and hands it to ingress,
// returning the text to surface as the tool result and whether it
// represents an error. Kept free of mcp-go types so it can be tested
// directly.
func submitHex(ctx context.Context, encoded string, ingress Ingress) (text string, isError bool) {
	if encoded == "" {
		return "hex parameter is required", true
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Sprintf("invalid hex: %v", err), true
	}
	if err := ingress(ctx, raw); err != nil {
		return fmt.Sprintf("submit failed: %v", err), true
	}
	return "accepted", false
}

// encodeHistory hex-encodes every RPTSET in history, one per line.
func encodeHistory(history []*ari.RptSet) string {
	out := ""
	for _, rs := range history {
		v := ari.NewRptSet(rs.Nonce, rs.ReferenceTime, rs.Reports...)
		out += hex.EncodeToString(aricbor.Encode(v)) + "\n"
	}
	return out
}

func (s *Server) handleSubmit(ctx context.Context, request mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	text, isError := submitHex(ctx, request.GetString("hex", ""), s.ingress)
	if isError {
		return mcpsdk.NewToolResultError(text), nil
	}
	return mcpsdk.NewToolResultText(text), nil
}

func (s *Server) handlePoll(ctx context.Context, request mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return mcpsdk.NewToolResultText(encodeHistory(s.queue.History())), nil
}

// ServeStdio runs the proxy server on stdio, the standard MCP transport
// for a locally spawned agent process.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
