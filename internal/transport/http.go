// Package transport adapts the processor to its delivery mechanisms. Both
// the HTTP server and the stdio loop read raw bytes, hand them to
// protocol.Processor, and serialize the outcome; neither contains routing
// logic of its own.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/config"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/metrics"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
)

// maxBodyBytes bounds request bodies; MCP payloads are small.
const maxBodyBytes = 1 << 20

type MiddlewareFunc func(http.Handler) http.Handler

func chainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

func recoverMiddleware(logger *zap.Logger) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic serving request",
						zap.String("path", r.URL.Path), zap.Any("panic", err))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func loggerMiddleware(logger *zap.Logger) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}

func requestIDMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Request-Id") == "" {
				r.Header.Set("X-Request-Id", uuid.NewString())
			}
			w.Header().Set("X-Request-Id", r.Header.Get("X-Request-Id"))
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows browser MCP clients to pass credential headers
// cross-origin. Preflights are answered 200 with no body.
func corsMiddleware() MiddlewareFunc {
	allowed := append([]string{"Content-Type", "Authorization"}, credentials.CredentialHeaders()...)
	allowHeaders := strings.Join(allowed, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPServer serves the MCP endpoint plus health and metrics.
type HTTPServer struct {
	cfg       config.ServerConfig
	processor *protocol.Processor
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewHTTPServer wires the HTTP transport.
func NewHTTPServer(cfg config.ServerConfig, processor *protocol.Processor, logger *zap.Logger, m *metrics.Metrics) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{cfg: cfg, processor: processor, logger: logger, metrics: m}
}

// Handler builds the full route set with the middleware chain applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	mws := []MiddlewareFunc{corsMiddleware(), requestIDMiddleware()}
	if s.cfg.LogRequests {
		mws = append(mws, loggerMiddleware(s.logger))
	}
	mws = append(mws, recoverMiddleware(s.logger))
	return chainMiddleware(mux, mws...)
}

func (s *HTTPServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	outcome := s.processor.Process(r.Context(), r.Header, body)
	writeOutcome(w, outcome, s.logger)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeOutcome(w http.ResponseWriter, outcome protocol.Outcome, logger *zap.Logger) {
	if outcome.Body == nil {
		w.WriteHeader(outcome.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(outcome.Status)
	if err := json.NewEncoder(w).Encode(outcome.Body); err != nil {
		logger.Warn("write response failed", zap.Error(err))
	}
}

// ListenAndServe runs the server until ctx is done or a shutdown signal
// arrives, then drains within the configured timeout.
func (s *HTTPServer) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-sig:
		s.logger.Info("shutdown signal received")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
