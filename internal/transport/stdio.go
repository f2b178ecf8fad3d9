package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
)

// maxLineBytes bounds one stdio message.
const maxLineBytes = 4 << 20

// StdioServer runs the line-delimited JSON-RPC loop: one request per line on
// stdin, one response per line on stdout. Logs must go to stderr in this
// mode or they corrupt the protocol stream.
type StdioServer struct {
	processor *protocol.Processor
	logger    *zap.Logger
	in        io.Reader
	out       io.Writer
}

// NewStdioServer wires the stdio transport.
func NewStdioServer(processor *protocol.Processor, logger *zap.Logger, in io.Reader, out io.Writer) *StdioServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StdioServer{processor: processor, logger: logger, in: in, out: out}
}

// Run reads until EOF or context cancellation. Responses with no payload
// (notifications) produce no output line.
func (s *StdioServer) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		outcome := s.processor.Process(ctx, nil, line)
		if outcome.Body == nil {
			continue
		}
		encoded, err := json.Marshal(outcome.Body)
		if err != nil {
			s.logger.Error("encode response failed", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(s.out, "%s\n", encoded); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}
