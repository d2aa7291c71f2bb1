// Package logging defines the structured-logging interface used across the
// server, with implementations backed by log/slog and go.uber.org/zap.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/zap"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "file uploaded", "file_id", id, "size", n)
type Logger interface {
	// Debug logs verbose diagnostics.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Formats accepted by New.
const (
	FormatJSON = "json"
	FormatZap  = "zap"
)

// New builds the process logger for the configured format: "json" writes
// slog JSON lines to stdout, "zap" uses zap's production encoder.
func New(format string) (Logger, error) {
	switch format {
	case "", FormatJSON:
		return NewJSONLogger(os.Stdout, slog.LevelInfo), nil
	case FormatZap:
		z, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("zap init: %w", err)
		}
		return NewZapLogger(z), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Discard returns a logger that drops every record.
func Discard() Logger {
	return NewSlogLogger(slog.DiscardHandler)
}
