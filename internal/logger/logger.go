// Package logger sets up structured logging for the whole service with log/slog.
// slog is Go's standard structured logger: every log line is a message plus
// key/value attributes, written either as JSON (for log aggregation in production)
// or as human-readable text (for local development).
//
// Only the outer layers log. The settlement engines are pure functions and never
// write logs; the settlement orchestrator logs around them.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Config describes how logs are written.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Format      string // "json" or "text"
	ServiceName string
	Version     string
	Environment string // "development", "staging", "production"
	AddSource   bool   // include file:line of the log call
}

// DefaultConfig is used by tools that have no environment, such as the CLI.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "golf-wagers",
		Version:     "dev",
		Environment: "development",
	}
}

// LogLevel converts the configured level string into an slog.Level.
// Unknown values fall back to info rather than failing startup.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
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

// IsJSON reports whether logs should be written as JSON.
func (c Config) IsJSON() bool {
	return strings.ToLower(c.Format) == "json"
}

// New builds a logger writing to w. The service/version/environment attributes
// are attached once here so every line carries them.
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel(), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.IsJSON() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.Version),
		slog.String("environment", cfg.Environment),
	)
}

// Init installs a logger on stdout as the process-wide default, so plain
// slog.Info(...) calls anywhere in the program use it.
func Init(cfg Config) *slog.Logger {
	l := New(cfg, os.Stdout)
	slog.SetDefault(l)
	return l
}

// ctxKey is unexported so no other package can collide with our context keys.
type ctxKey string

const requestIDKey ctxKey = "request_id"

// GenerateRequestID creates a new random ID for tracing one request.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a copy of ctx carrying the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID, if one was attached.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// FromContext returns the default logger, tagged with request_id when the
// context carries one.
func FromContext(ctx context.Context) *slog.Logger {
	if id, ok := RequestIDFromContext(ctx); ok {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
