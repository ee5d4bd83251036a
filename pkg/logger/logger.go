// Package logger is a thin slog wrapper that carries request scoped fields.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request ID.
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID (string representation).
	UserIDKey contextKey = "user_id"
	// IdempotencyKeyKey is the context key for the client-supplied idempotency key.
	IdempotencyKeyKey contextKey = "idempotency_key"
)

var contextFields = []contextKey{RequestIDKey, UserIDKey, IdempotencyKeyKey}

// Logger is a structured logger wrapper around slog
type Logger struct {
	*slog.Logger
}

// Options select the handler. Empty fields take the defaults for Env.
type Options struct {
	Env    string // "production" forces JSON
	Format string // "json" or "text"
	Level  string // debug, info, warn, error
}

// OptionsFromEnv reads LOG_FORMAT and LOG_LEVEL
func OptionsFromEnv(env string) Options {
	return Options{Env: env, Format: os.Getenv("LOG_FORMAT"), Level: os.Getenv("LOG_LEVEL")}
}

// New creates a logger writing to output
func New(opts Options, output io.Writer) *Logger {
	production := opts.Env == "production"

	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	if opts.Level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(opts.Level)); err == nil {
			level = parsed
		}
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if production || strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// RFC3339 timestamps and file:line sources
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok {
			a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return a
}

// NewDefault creates a stdout logger configured from the environment
func NewDefault(env string) *Logger {
	return New(OptionsFromEnv(env), os.Stdout)
}

// Discard returns a logger that drops every record. Used by tests and by
// services constructed without a logger.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l *Logger) *Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// WithComponent tags every record with the emitting component
func (l *Logger) WithComponent(name string) *Logger {
	return l.WithField("component", name)
}

// WithContext adds the request id, user id and idempotency key found in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var args []any
	for _, key := range contextFields {
		if v := ctx.Value(key); v != nil {
			args = append(args, string(key), v)
		}
	}
	if len(args) == 0 {
		return l
	}
	return &Logger{Logger: l.With(args...)}
}

// WithField creates a new logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(key, value)}
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.With("error", err.Error())}
}
