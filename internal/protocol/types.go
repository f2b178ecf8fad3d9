// Package protocol implements the JSON-RPC 2.0 method router for the MCP
// convention: envelope validation, method dispatch, argument hand-off to
// tool handlers, and uniform error-to-envelope translation. Every transport
// (HTTP, stdio) funnels into Processor.Process.
package protocol

import (
	"context"
	"encoding/json"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/mark3labs/mcp-go/mcp"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// Request is the incoming JSON-RPC envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the outgoing JSON-RPC envelope.
type Response struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      any        `json:"id"`
	Result  any        `json:"result,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the JSON-RPC error object.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Outcome is what a transport writes back: an HTTP-ish status plus a body.
// A nil body with status 200 means "no payload" (notifications).
type Outcome struct {
	Status int
	Body   any
}

// toolCallParams is the params shape for tools/call.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolFunc executes one tool invocation with already-resolved credentials.
type ToolFunc func(ctx context.Context, creds credentials.Credentials, args json.RawMessage) (*mcp.CallToolResult, error)

// ToolSet is the registry surface the processor dispatches against.
type ToolSet interface {
	// Lookup returns the handler for a tool name, or false when the tool is
	// unknown or disabled.
	Lookup(name string) (ToolFunc, bool)
	// Descriptors returns the advertised catalog, sorted by tool name.
	Descriptors() []map[string]any
}

func rpcOK(id any, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func rpcError(id any, code int, msg string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &ErrorBody{Code: code, Message: msg}}
}
