package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestKey ctxKey = iota
	loggerKey
)

// requestInfo is the per-request identity carried alongside the logger.
type requestInfo struct {
	correlationID string
	userID        string
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New creates a JSON logger on stdout tagged with the service name.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}
	return slog.New(slog.NewJSONHandler(w, opts)).With("service", serviceName)
}

// ParseLevel maps a textual level to slog. Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

func info(ctx context.Context) requestInfo {
	ri, _ := ctx.Value(requestKey).(requestInfo)
	return ri
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	ri := info(ctx)
	ri.correlationID = id
	return context.WithValue(ctx, requestKey, ri)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return info(ctx).correlationID
}

// WithUserID records the authenticated caller for log lines and events.
func WithUserID(ctx context.Context, id string) context.Context {
	ri := info(ctx)
	ri.userID = id
	return context.WithValue(ctx, requestKey, ri)
}

func UserIDFromContext(ctx context.Context) string {
	return info(ctx).userID
}

func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request-scoped logger, or fallback when none was
// stored. A nil fallback yields slog.Default().
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

// Attrs lists the request identity and active span of ctx as log attributes.
// Empty values are omitted.
func Attrs(ctx context.Context) []any {
	ri := info(ctx)
	var attrs []any
	if ri.correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", ri.correlationID))
	}
	if ri.userID != "" {
		attrs = append(attrs, slog.String("user_id", ri.userID))
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}

func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
