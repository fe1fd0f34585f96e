package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/JoaoG250/micro-do/common/middleware"
)

// Logger wraps slog.Logger to provide context-aware structured logging.
// Request IDs from HTTP middleware and correlation IDs from RPC envelopes
// are picked up from the context automatically.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to stdout.
// format can be "json" or "text" (default is json).
func New(level slog.Level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a Logger writing to w.
func NewWithWriter(w io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelError,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Default wraps slog.Default. Packages use it when handed a nil logger.
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

type correlationKey struct{}

// ContextWithCorrelationID stores an RPC correlation id on ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the correlation id stored on ctx, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// WithContext returns a logger carrying the request and correlation ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	logger := l.Logger
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		logger = logger.With(slog.String(FieldRequestID, reqID))
	}
	if corrID := CorrelationIDFromContext(ctx); corrID != "" {
		logger = logger.With(CorrelationID(corrID))
	}
	return logger
}

// The *Context methods add the ids carried by ctx to every record.

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).InfoContext(ctx, msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).WarnContext(ctx, msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).ErrorContext(ctx, msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).DebugContext(ctx, msg, args...)
}

// With returns a child Logger so callers keep the context-aware methods.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Watermill adapts the logger for watermill publishers and subscribers.
// Watermill's info chatter is demoted to debug.
func (l *Logger) Watermill() watermill.LoggerAdapter {
	return watermill.NewSlogLoggerWithLevelMapping(l.Logger, map[slog.Level]slog.Level{
		slog.LevelInfo: slog.LevelDebug,
	})
}

// ParseLevel converts a string log level to slog.Level.
// Valid values: "debug", "info", "warn", "error" in any case.
// Returns slog.LevelInfo for invalid values.
func ParseLevel(level string) slog.Level {
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

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
