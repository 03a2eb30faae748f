package cache

import (
	"context"
	"strings"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/metrics"
	"github.com/Combine-Capital/kvcache/pkg/tracing"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// operation tracks the span and timing of one store round trip.
type operation struct {
	name    string
	start   time.Time
	span    trace.Span
	metrics *metrics.CacheMetrics
}

func (r *RedisService) startOp(ctx context.Context, name, key string) (context.Context, *operation) {
	ctx, span := tracing.StartSpan(ctx, "cache."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.CacheAttributes("redis", name, key)...),
	)
	return ctx, &operation{
		name:    strings.ToLower(name),
		start:   time.Now(),
		span:    span,
		metrics: r.metrics,
	}
}

// finish closes a write or delete.
func (o *operation) finish(err error) {
	o.end(metrics.ResultOK, err)
}

// finishRead closes a read, recording whether it found anything.
func (o *operation) finishRead(found bool, err error) {
	o.span.SetAttributes(tracing.CacheHit(found))
	result := metrics.ResultOK
	if !found {
		result = metrics.ResultMiss
	}
	o.end(result, err)
}

func (o *operation) end(result string, err error) {
	if err != nil {
		result = metrics.ResultError
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.metrics.Observe(o.name, result, time.Since(o.start))
	o.span.End()
}
