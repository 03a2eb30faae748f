package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used by StartSpan.
const TracerName = "github.com/Combine-Capital/kvcache"

// StartSpan starts a span as a child of whatever span ctx carries. The
// returned context holds the new span.
//
//	ctx, span := tracing.StartSpan(ctx, "cache.Get",
//	    trace.WithAttributes(tracing.CacheAttributes("redis", "Get", key)...))
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartSpanWithTracer starts a span from the named tracer.
func StartSpanWithTracer(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// SpanFromContext returns the span in ctx, or a no-op span.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

func ContextWithSpan(ctx context.Context, span trace.Span) context.Context {
	return trace.ContextWithSpan(ctx, span)
}

// SetSpanAttributes adds attributes to the span in ctx.
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// SetSpanError records err on the span in ctx and marks it failed.
// A nil error is ignored.
func SetSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanStatus(ctx context.Context, code codes.Code, description string) {
	trace.SpanFromContext(ctx).SetStatus(code, description)
}

// AddSpanEvent adds a timestamped event to the span in ctx.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// HTTPAttributes returns the attributes describing a served HTTP request.
func HTTPAttributes(method, route, host string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.host", host),
		attribute.Int("http.status_code", statusCode),
	}
}

// CacheAttributes returns the attributes every cache span starts with.
func CacheAttributes(system, operation, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("cache.system", system),
		attribute.String("cache.operation", operation),
		attribute.String("cache.key", key),
	}
}

// CacheHit returns the attribute recording whether a read found a value.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool("cache.hit", hit)
}
