package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNewWithWriter_IncludesServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("reviewstore", "info", &buf)
	l.Info("hello")

	out := decodeLine(t, &buf)
	assert.Equal(t, "reviewstore", out["service"])
	assert.Equal(t, "hello", out["msg"])
}

func TestNewWithWriter_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("widget", "warn", &buf)
	l.Info("dropped")

	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithContext_CorrelationAndShop(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "req-123")
	ctx = WithShopID(ctx, "test_shop_001")
	WithContext(ctx, l).Info("hello")

	out := decodeLine(t, &buf)
	assert.Equal(t, "req-123", out["correlation_id"])
	assert.Equal(t, "test_shop_001", out["shop_id"])
}

func TestWithContext_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test", "info", &buf)

	WithContext(context.Background(), l).Info("no span")

	out := decodeLine(t, &buf)
	assert.NotContains(t, out, "trace_id")
	assert.NotContains(t, out, "span_id")
	assert.NotContains(t, out, "shop_id")
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
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
