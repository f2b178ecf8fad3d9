// Package logging builds the process-wide zap logger and provides
// redaction-aware field helpers for credential material.
package logging

import (
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Empty means "info".
	Level string
	// Format is "json" or "console". Empty means "json".
	Format string
	// Stderr forces all output to stderr. The stdio transport requires this
	// because stdout carries the JSON-RPC stream.
	Stderr bool
}

// New constructs a zap logger. It never fails on an unknown level; the level
// falls back to info so a typo in config does not kill the server.
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(opts.Level); err == nil && opts.Level != "" {
		level = parsed
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sink := zapcore.Lock(stdoutSink(opts.Stderr))
	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core)
}

// Redacted logs the presence and length of a secret without its value.
func Redacted(key, value string) zap.Field {
	if value == "" {
		return zap.String(key, "")
	}
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(value))+"]")
}

// NopLogger is a convenience for tests.
func NopLogger() *zap.Logger { return zap.NewNop() }
