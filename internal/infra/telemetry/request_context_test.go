package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestMetaGeneratesID(t *testing.T) {
	ctx, meta := withRequestMeta(context.Background(), "")
	require.NotEmpty(t, meta.requestID)

	got, ok := requestMetaFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, meta, got)

	_, again := withRequestMeta(ctx, "")
	require.Equal(t, meta.requestID, again.requestID)
}

func TestWithRequestMetaCapturesSpan(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0123456789abcdef")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	_, meta := withRequestMeta(ctx, "req-123")
	require.Equal(t, "req-123", meta.requestID)
	require.Equal(t, traceID.String(), meta.traceID)
	require.Equal(t, spanID.String(), meta.spanID)
}

func TestRequestMiddlewareReusesHeader(t *testing.T) {
	var seen string
	handler := RequestMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, _ := requestMetaFromContext(r.Context())
		seen = meta.requestID
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "req-abc", seen)
	require.Equal(t, "req-abc", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))
	require.NotEmpty(t, seen)
	require.NotEqual(t, "req-abc", seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestLoggerWithRequestAddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx, meta := withRequestMeta(context.Background(), "req-9")

	LoggerWithRequest(ctx, zap.New(core)).Info("handled")
	LoggerWithRequest(context.Background(), zap.New(core)).Info("bare")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, meta.requestID, entries[0].ContextMap()[FieldRequestID])
	require.NotContains(t, entries[0].ContextMap(), FieldTraceID)
	require.Empty(t, entries[1].Context)
}
