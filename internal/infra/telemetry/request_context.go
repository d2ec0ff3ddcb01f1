package telemetry

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-Id"

type requestContextKey struct{}

type requestMeta struct {
	requestID string
	traceID   string
	spanID    string
}

func requestMetaFromContext(ctx context.Context) (requestMeta, bool) {
	if ctx == nil {
		return requestMeta{}, false
	}
	meta, ok := ctx.Value(requestContextKey{}).(requestMeta)
	return meta, ok
}

// withRequestMeta stores requestID together with the active span ids. An
// empty requestID keeps the one already on ctx or mints a new one.
func withRequestMeta(ctx context.Context, requestID string) (context.Context, requestMeta) {
	if requestID == "" {
		if existing, ok := requestMetaFromContext(ctx); ok {
			requestID = existing.requestID
		}
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	meta := requestMeta{requestID: requestID}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		meta.traceID = spanCtx.TraceID().String()
		meta.spanID = spanCtx.SpanID().String()
	}
	return context.WithValue(ctx, requestContextKey{}, meta), meta
}

// RequestMiddleware tags every request context with a request id, reusing an
// inbound X-Request-Id header, and echoes it on the response.
func RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, meta := withRequestMeta(r.Context(), strings.TrimSpace(r.Header.Get(RequestIDHeader)))
		w.Header().Set(RequestIDHeader, meta.requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerWithRequest decorates base with the request and trace ids on ctx.
func LoggerWithRequest(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	meta, ok := requestMetaFromContext(ctx)
	if !ok {
		return logger
	}
	fields := []zap.Field{RequestIDField(meta.requestID)}
	if meta.traceID != "" {
		fields = append(fields, TraceIDField(meta.traceID), SpanIDField(meta.spanID))
	}
	return logger.With(fields...)
}
