package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"
)

// SlogLogger writes records straight to a slog.Handler. A record below the
// handler's level is dropped before its attributes are built, and the
// source position points at the caller, not at this adapter.
type SlogLogger struct {
	h slog.Handler
}

func NewSlogLogger(h slog.Handler) *SlogLogger {
	return &SlogLogger{h: h}
}

// NewJSONLogger writes JSON lines at or above level to w.
func NewJSONLogger(w io.Writer, level slog.Leveler) *SlogLogger {
	return NewSlogLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s *SlogLogger) With(args ...any) Logger {
	if len(args) == 0 {
		return s
	}
	return &SlogLogger{h: slog.New(s.h).With(args...).Handler()}
}

func (s *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.h.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip runtime.Callers, log and the level method
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = s.h.Handle(ctx, r)
}
