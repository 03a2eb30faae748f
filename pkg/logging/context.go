package logging

import (
	"context"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/rs/zerolog"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerContextKey    = contextKey("kvcache.logger")
	traceIDContextKey   = contextKey("kvcache.trace_id")
	spanIDContextKey    = contextKey("kvcache.span_id")
	requestIDContextKey = contextKey("kvcache.request_id")
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context, enriched with any trace,
// span and request IDs found there. If no logger is stored, a default JSON
// logger on stdout is used.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(loggerContextKey).(*Logger)
	if !ok {
		logger = New(config.LogConfig{Level: "info", Format: "json", Output: "stdout"})
	}
	return enrichLoggerFromContext(ctx, logger)
}

func enrichLoggerFromContext(ctx context.Context, logger *Logger) *Logger {
	fields := make(map[string]interface{})

	if traceID := GetTraceID(ctx); traceID != "" {
		fields[TraceID] = traceID
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		fields[SpanID] = spanID
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields[RequestID] = requestID
	}

	if len(fields) > 0 {
		return logger.WithFields(fields)
	}
	return logger
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDContextKey).(string); ok {
		return traceID
	}
	return ""
}

// WithSpanID adds a span ID to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDContextKey, spanID)
}

// GetSpanID retrieves the span ID from the context.
func GetSpanID(ctx context.Context) string {
	if spanID, ok := ctx.Value(spanIDContextKey).(string); ok {
		return spanID
	}
	return ""
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// WithTraceContext adds both trace and span IDs to the context.
func WithTraceContext(ctx context.Context, traceID, spanID string) context.Context {
	ctx = WithTraceID(ctx, traceID)
	return WithSpanID(ctx, spanID)
}

// Ctx returns the context's zerolog.Logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx).GetZerolog()
}
