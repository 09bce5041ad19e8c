package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	return out
}

func TestNewWithWriter_TagsService(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("posts-api", "info", &buf).Info("started")

	out := decodeLine(t, &buf)
	if got := out["service"]; got != "posts-api" {
		t.Errorf("service = %v, want %q", got, "posts-api")
	}
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("posts-api", "warn", &buf)
	l.Info("hidden")

	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithContext_CorrelationAndUser(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "req-123")
	ctx = WithUserID(ctx, "user-789")
	WithContext(ctx, l).Info("hello")

	out := decodeLine(t, &buf)
	if got := out["correlation_id"]; got != "req-123" {
		t.Errorf("correlation_id = %v, want %q", got, "req-123")
	}
	if got := out["user_id"]; got != "user-789" {
		t.Errorf("user_id = %v, want %q", got, "user-789")
	}
	if _, ok := out["trace_id"]; ok {
		t.Error("trace_id should not be present without a span")
	}
}

func TestWithContext_WithValidSpan(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithContext(ctx, l).Info("with span")

	out := decodeLine(t, &buf)
	if got := out["trace_id"]; got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", got)
	}
	if got := out["span_id"]; got != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", got)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	fallback := NewWithWriter("fallback", "info", &buf)

	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback logger when none stored")
	}
	if got := FromContext(context.Background(), nil); got != slog.Default() {
		t.Error("expected slog.Default for nil fallback")
	}

	stored := NewWithWriter("stored", "info", &buf)
	ctx := NewContext(context.Background(), stored)
	if got := FromContext(ctx, fallback); got != stored {
		t.Error("expected stored logger")
	}
}

func TestCorrelationIDFromContext_Empty(t *testing.T) {
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestWithUserID_KeepsCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "u-1")
	ctx = WithCorrelationID(ctx, "req-2")

	if got := CorrelationIDFromContext(ctx); got != "req-2" {
		t.Errorf("correlation id = %q, want %q", got, "req-2")
	}
	if got := UserIDFromContext(ctx); got != "u-1" {
		t.Errorf("user id = %q, want %q", got, "u-1")
	}
}

func TestAttrs_EmptyContext(t *testing.T) {
	if got := Attrs(context.Background()); len(got) != 0 {
		t.Errorf("attrs = %v, want none", got)
	}

	l := NewWithWriter("test", "info", &bytes.Buffer{})
	if WithContext(context.Background(), l) != l {
		t.Error("expected the same logger when the context carries nothing")
	}
}
