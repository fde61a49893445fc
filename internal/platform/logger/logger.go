// Package logger provides structured logging for the lockdown server.
// Every phase change, code submission and outcome should be traceable through this.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger provides structured logging with context.
type Logger struct {
	base *slog.Logger
}

// NewLogger creates a logger writing text records to stdout at info level.
func NewLogger() *Logger {
	return New(os.Stdout, "info")
}

// New creates a logger writing to w at the given level ("debug", "info", "warn", "error").
func New(w io.Writer, level string) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{base: slog.New(handler)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{base: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger that adds the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With(args...)}
}

// Debug logs low-level diagnostics.
func (l *Logger) Debug(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Debug(msg, args...)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Info(msg, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Warn(msg, args...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, args ...any) {
	if l == nil {
		return
	}
	l.base.Error(msg, args...)
}

// Event logs a specific game event for audit.
func (l *Logger) Event(eventType string, actorID string, details string) {
	if l == nil {
		return
	}
	l.base.Info("event", "type", eventType, "actor", actorID, "details", details)
}
