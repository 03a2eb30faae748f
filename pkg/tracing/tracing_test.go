package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// installRecorder routes the global tracer provider into an in-memory
// exporter for the duration of the test.
func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func TestNewTracerProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TracingConfig
		svc     string
		wantErr string
	}{
		{
			name: "disabled",
			cfg:  config.TracingConfig{Enabled: false},
			svc:  "kvcache",
		},
		{
			name:    "missing endpoint",
			cfg:     config.TracingConfig{Enabled: true},
			svc:     "kvcache",
			wantErr: "tracing endpoint is required when tracing is enabled",
		},
		{
			name:    "missing service name",
			cfg:     config.TracingConfig{Enabled: true, Endpoint: "localhost:4317"},
			wantErr: "service name is required for tracing",
		},
		{
			name:    "unknown export mode",
			cfg:     config.TracingConfig{Enabled: true, Endpoint: "localhost:4317", ExportMode: "carrier-pigeon"},
			svc:     "kvcache",
			wantErr: "unsupported export mode: carrier-pigeon (use 'grpc' or 'http')",
		},
		{
			name: "grpc exporter",
			cfg:  config.TracingConfig{Enabled: true, Endpoint: "localhost:4317", ExportMode: "grpc", Insecure: true, SampleRate: 1},
			svc:  "kvcache",
		},
		{
			name: "http exporter",
			cfg: config.TracingConfig{Enabled: true, Endpoint: "localhost:4318", ExportMode: "http", Insecure: true,
				SampleRate: 0.5, BatchTimeout: time.Second, Environment: "test"},
			svc: "kvcache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := otel.GetTracerProvider()
			t.Cleanup(func() { otel.SetTracerProvider(prev) })

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			tp, shutdown, err := NewTracerProvider(ctx, tt.cfg, tt.svc)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("NewTracerProvider() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTracerProvider() error = %v", err)
			}
			if tp == nil || shutdown == nil {
				t.Fatal("NewTracerProvider() returned nil provider or shutdown")
			}

			// Nothing listens on the endpoint; flushing may fail but must return.
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Second)
			defer cancelShutdown()
			_ = shutdown(shutdownCtx)
		})
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate      float64
		wantSpans int
	}{
		{0, 0},
		{-1, 0},
		{1, 1},
		{2, 1},
	}

	for _, tt := range tests {
		exporter := tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithSampler(samplerFor(tt.rate)),
		)

		_, span := tp.Tracer("test").Start(context.Background(), "op")
		span.End()

		if got := len(exporter.GetSpans()); got != tt.wantSpans {
			t.Errorf("samplerFor(%v): recorded %d spans, want %d", tt.rate, got, tt.wantSpans)
		}
	}
}

func TestStartSpan(t *testing.T) {
	exporter := installRecorder(t)

	ctx, parent := StartSpan(context.Background(), "parent")
	_, child := StartSpanWithTracer(ctx, "other-tracer", "child")
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name != "child" || spans[1].Name != "parent" {
		t.Fatalf("span names = %q, %q", spans[0].Name, spans[1].Name)
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("child span is not parented to parent span")
	}
	if spans[1].InstrumentationScope.Name != TracerName {
		t.Errorf("scope = %q, want %q", spans[1].InstrumentationScope.Name, TracerName)
	}
}

func TestSpanContextHelpers(t *testing.T) {
	exporter := installRecorder(t)

	ctx, span := StartSpan(context.Background(), "op")
	if SpanFromContext(ctx).SpanContext().SpanID() != span.SpanContext().SpanID() {
		t.Fatal("SpanFromContext() returned a different span")
	}

	moved := ContextWithSpan(context.Background(), span)
	SetSpanAttributes(moved, attribute.String("k", "v"))
	AddSpanEvent(moved, "evicted", attribute.Int("count", 3))
	SetSpanStatus(moved, codes.Ok, "")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if v, ok := attrMap(spans[0].Attributes)["k"]; !ok || v.AsString() != "v" {
		t.Errorf("attribute k = %v, want v", v)
	}
	if len(spans[0].Events) != 1 || spans[0].Events[0].Name != "evicted" {
		t.Errorf("events = %+v, want one 'evicted' event", spans[0].Events)
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status.Code)
	}
}

func TestSetSpanError(t *testing.T) {
	exporter := installRecorder(t)

	ctx, failed := StartSpan(context.Background(), "failed")
	SetSpanError(ctx, errors.New("Cache Set error: k v"))
	failed.End()

	ctx, clean := StartSpan(context.Background(), "clean")
	SetSpanError(ctx, nil)
	clean.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "Cache Set error: k v" {
		t.Errorf("failed span status = %+v", spans[0].Status)
	}
	if len(spans[0].Events) != 1 || spans[0].Events[0].Name != "exception" {
		t.Errorf("failed span events = %+v, want one exception", spans[0].Events)
	}
	if spans[1].Status.Code != codes.Unset || len(spans[1].Events) != 0 {
		t.Errorf("nil error changed span: status %+v events %d", spans[1].Status, len(spans[1].Events))
	}
}

func TestCacheAttributes(t *testing.T) {
	attrs := attrMap(append(CacheAttributes("redis", "Get", "user:1"), CacheHit(true)))

	want := map[attribute.Key]string{
		"cache.system":    "redis",
		"cache.operation": "Get",
		"cache.key":       "user:1",
	}
	for k, v := range want {
		if attrs[k].AsString() != v {
			t.Errorf("%s = %q, want %q", k, attrs[k].AsString(), v)
		}
	}
	if !attrs["cache.hit"].AsBool() {
		t.Error("cache.hit = false, want true")
	}
}

func TestHTTPAttributes(t *testing.T) {
	attrs := attrMap(HTTPAttributes(http.MethodPut, "/v1/keys/{key}", "cache.local", 204))
	if attrs["http.route"].AsString() != "/v1/keys/{key}" {
		t.Errorf("http.route = %q", attrs["http.route"].AsString())
	}
	if attrs["http.status_code"].AsInt64() != 204 {
		t.Errorf("http.status_code = %d, want 204", attrs["http.status_code"].AsInt64())
	}
}

func TestInjectExtractHTTP(t *testing.T) {
	installRecorder(t)

	ctx, span := StartSpan(context.Background(), "client")
	defer span.End()

	header := http.Header{}
	InjectHTTP(ctx, header)
	if header.Get("traceparent") == "" {
		t.Fatal("traceparent header not set")
	}

	extracted := trace.SpanContextFromContext(ExtractHTTP(context.Background(), header))
	if !extracted.IsValid() || extracted.TraceID() != span.SpanContext().TraceID() {
		t.Fatalf("extracted span context = %+v, want trace %s", extracted, span.SpanContext().TraceID())
	}
	if GetPropagator() == nil {
		t.Error("GetPropagator() returned nil")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	exporter := installRecorder(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/keys/{key}", func(w http.ResponseWriter, r *http.Request) {
		if !SpanFromContext(r.Context()).SpanContext().IsValid() {
			t.Error("handler context carries no span")
		}
		w.Write([]byte("v"))
	})
	mux.HandleFunc("PUT /v1/keys/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	handler := HTTPMiddleware("kvcache")(mux)

	ctx, upstream := StartSpan(context.Background(), "upstream")
	req := httptest.NewRequest(http.MethodGet, "/v1/keys/user:1", nil)
	InjectHTTP(ctx, req.Header)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	upstream.End()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/v1/keys/user:1", nil))

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}

	get := spans[0]
	if get.Name != "GET /v1/keys/{key}" {
		t.Errorf("GET span name = %q, want route pattern", get.Name)
	}
	if get.SpanKind != trace.SpanKindServer {
		t.Errorf("GET span kind = %v, want server", get.SpanKind)
	}
	if get.Parent.TraceID() != upstream.SpanContext().TraceID() {
		t.Error("GET span did not continue the upstream trace")
	}
	if attrMap(get.Attributes)["http.status_code"].AsInt64() != 200 {
		t.Errorf("GET status attribute = %v", attrMap(get.Attributes)["http.status_code"])
	}
	if get.Status.Code != codes.Ok {
		t.Errorf("GET status = %v, want Ok", get.Status.Code)
	}

	put := spans[2]
	if put.Status.Code != codes.Error {
		t.Errorf("PUT status = %v, want Error for 503", put.Status.Code)
	}
}

func TestGetTracer(t *testing.T) {
	if GetTracer("kvcache") == nil {
		t.Fatal("GetTracer() returned nil")
	}
}
