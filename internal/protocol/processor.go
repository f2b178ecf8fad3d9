package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/logging"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/metrics"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/upstream"
	"github.com/mark3labs/mcp-go/mcp"
)

// Processor is the single entry point all transports call.
type Processor struct {
	tools    ToolSet
	resolver *credentials.Resolver
	logger   *zap.Logger
	metrics  *metrics.Metrics

	serverName    string
	serverVersion string
	// devMode attaches internal error detail to -32603 responses. Never on
	// by default.
	devMode bool
}

// NewProcessor wires the dispatcher.
func NewProcessor(tools ToolSet, resolver *credentials.Resolver, logger *zap.Logger, m *metrics.Metrics, name, version string, devMode bool) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		tools:         tools,
		resolver:      resolver,
		logger:        logger,
		metrics:       m,
		serverName:    name,
		serverVersion: version,
		devMode:       devMode,
	}
}

// Process validates the envelope, routes the method, and returns the
// transport-agnostic outcome. Headers may be nil (stdio transport).
func (p *Processor) Process(ctx context.Context, headers http.Header, body []byte) Outcome {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return Outcome{
			Status: http.StatusBadRequest,
			Body:   rpcError(nil, CodeInvalidRequest, "batch requests not supported"),
		}
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return Outcome{
			Status: http.StatusBadRequest,
			Body:   rpcError(nil, CodeParseError, "parse error: invalid JSON"),
		}
	}

	if req.JSONRPC != "2.0" {
		return Outcome{
			Status: http.StatusBadRequest,
			Body:   rpcError(req.ID, CodeInvalidRequest, `invalid request: jsonrpc must be "2.0"`),
		}
	}
	if req.Method == "" {
		return Outcome{
			Status: http.StatusBadRequest,
			Body:   rpcError(req.ID, CodeInvalidRequest, "invalid request: method is required"),
		}
	}

	switch req.Method {
	case "initialize":
		return Outcome{Status: http.StatusOK, Body: rpcOK(req.ID, p.initializeResult())}

	case "notifications/initialized":
		// one-way notification: no payload
		return Outcome{Status: http.StatusOK, Body: nil}

	case "ping":
		return Outcome{Status: http.StatusOK, Body: rpcOK(req.ID, map[string]any{})}

	case "tools/list":
		return Outcome{
			Status: http.StatusOK,
			Body:   rpcOK(req.ID, map[string]any{"tools": p.tools.Descriptors()}),
		}

	case "tools/call":
		return p.handleToolCall(ctx, headers, req)

	default:
		return Outcome{
			Status: http.StatusNotFound,
			Body:   rpcError(req.ID, CodeMethodNotFound, "Method not found: "+req.Method),
		}
	}
}

func (p *Processor) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": true},
		},
		"serverInfo": map[string]any{
			"name":    p.serverName,
			"version": p.serverVersion,
		},
	}
}

func (p *Processor) handleToolCall(ctx context.Context, headers http.Header, req Request) Outcome {
	var params toolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return Outcome{
				Status: http.StatusBadRequest,
				Body:   rpcError(req.ID, CodeInvalidParams, "invalid params: "+err.Error()),
			}
		}
	}
	if params.Name == "" {
		return Outcome{
			Status: http.StatusBadRequest,
			Body:   rpcError(req.ID, CodeInvalidParams, "invalid params: tool name is required"),
		}
	}

	handler, ok := p.tools.Lookup(params.Name)
	if !ok {
		return Outcome{
			Status: http.StatusNotFound,
			Body:   rpcError(req.ID, CodeMethodNotFound, "Unknown tool: "+params.Name),
		}
	}

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	creds := p.resolver.Resolve(headers)
	requestID := uuid.NewString()
	logger := p.logger.With(
		zap.String("request_id", requestID),
		zap.String("tool", params.Name),
	)
	logger.Info("tool call started",
		zap.ByteString("arguments", redactArguments(args)),
		logging.Redacted("sentry_token", creds.Sentry.Token),
		logging.Redacted("jira_token", creds.Jira.Token),
	)

	start := time.Now()
	result, err := handler(ctx, creds, args)
	elapsed := time.Since(start)

	if err != nil {
		return p.toolCallFailure(logger, req.ID, params.Name, elapsed, err)
	}

	logger.Info("tool call succeeded", zap.Duration("duration", elapsed))
	p.metrics.ObserveToolCall(params.Name, "success", elapsed.Seconds())
	return Outcome{Status: http.StatusOK, Body: rpcOK(req.ID, result)}
}

// toolCallFailure maps a handler error onto the wire. Protocol mistakes keep
// their code and message verbatim; upstream failures (including timeouts)
// become isError tool results so MCP clients see a usable message instead of
// a transport 500; anything else is a generic internal error.
func (p *Processor) toolCallFailure(logger *zap.Logger, id any, tool string, elapsed time.Duration, err error) Outcome {
	logger.Warn("tool call failed", zap.Duration("duration", elapsed), zap.Error(err))

	if pe, ok := AsProtocolError(err); ok {
		p.metrics.ObserveToolCall(tool, "invalid", elapsed.Seconds())
		status := pe.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		return Outcome{Status: status, Body: rpcError(id, pe.Code, pe.Message)}
	}

	if _, ok := upstream.IsUpstream(err); ok || upstream.IsTimeout(err) {
		p.metrics.ObserveToolCall(tool, "upstream_error", elapsed.Seconds())
		return Outcome{Status: http.StatusOK, Body: rpcOK(id, mcp.NewToolResultError(err.Error()))}
	}

	p.metrics.ObserveToolCall(tool, "error", elapsed.Seconds())
	body := rpcError(id, CodeInternalError, "Internal server error")
	if p.devMode {
		body.Error.Data = err.Error()
	}
	return Outcome{Status: http.StatusInternalServerError, Body: body}
}

// secretArgumentKeys are argument names whose values never reach the log.
var secretArgumentKeys = map[string]struct{}{
	"token":    {},
	"apiToken": {},
	"password": {},
}

// redactArguments replaces secret-named argument values before logging.
// Arguments that fail to parse are logged as an opaque marker rather than
// raw, since they could contain anything.
func redactArguments(raw json.RawMessage) []byte {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return []byte(`"<unparsed>"`)
	}
	for key := range args {
		if _, secret := secretArgumentKeys[key]; secret {
			args[key] = "[REDACTED]"
		}
	}
	out, err := json.Marshal(args)
	if err != nil {
		return []byte(`"<unparsed>"`)
	}
	return out
}
