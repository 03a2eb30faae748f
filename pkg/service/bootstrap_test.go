package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/health"
	"github.com/Combine-Capital/kvcache/pkg/logging"
	"github.com/alicebob/miniredis/v2"
)

func testBootstrapConfig(mr *miniredis.Miniredis) *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{
			Name:    "kvcache-test",
			Version: "1.0.0",
			Env:     "test",
		},
		Cache: config.CacheConfig{
			Host:        mr.Host(),
			Port:        mr.Server().Addr().Port,
			MaxRetries:  -1,
			DialTimeout: 200 * time.Millisecond,
		},
		Metrics: config.MetricsConfig{
			Enabled:   false,
			Namespace: "kvcache_test",
		},
		Connect: config.ConnectConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Timeout:        5 * time.Second,
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
}

func bufferLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewWithWriter(config.LogConfig{Level: "debug"}, &buf), &buf
}

// TestBootstrap tests the Bootstrap functionality.
func TestBootstrap(t *testing.T) {
	t.Run("Basic initialization", func(t *testing.T) {
		mr := miniredis.RunT(t)
		logger, buf := bufferLogger()

		ctx := context.Background()
		b, err := NewBootstrap(ctx, testBootstrapConfig(mr), WithBootstrapLogger(logger))
		if err != nil {
			t.Fatalf("NewBootstrap() error = %v", err)
		}
		defer b.Cleanup(ctx)

		if b.Config == nil || b.Logger == nil {
			t.Fatal("Config and Logger should be set")
		}
		if b.TracerProvider != nil {
			t.Error("TracerProvider should be nil when tracing disabled")
		}
		if b.CacheMetrics == nil {
			t.Error("CacheMetrics should be set when metrics are not skipped")
		}
		if b.Cache == nil {
			t.Fatal("Cache should be connected")
		}

		if err := b.Cache.Set(ctx, "boot", []byte("ok")); err != nil {
			t.Errorf("Set() through bootstrapped cache = %v", err)
		}
		if got, _ := mr.Get("boot"); got != "ok" {
			t.Errorf("stored value = %q", got)
		}

		if result := b.Health.Check(ctx); result.Status != health.StatusHealthy {
			t.Errorf("health = %+v, want healthy", result)
		}

		out := buf.String()
		for _, want := range []string{"Service starting", "Redis connected!", `"service":"kvcache-test"`} {
			if !strings.Contains(out, want) {
				t.Errorf("logs missing %q: %s", want, out)
			}
		}
	})

	t.Run("Without metrics", func(t *testing.T) {
		mr := miniredis.RunT(t)
		logger, _ := bufferLogger()

		ctx := context.Background()
		b, err := NewBootstrap(ctx, testBootstrapConfig(mr), WithoutMetrics(), WithBootstrapLogger(logger))
		if err != nil {
			t.Fatalf("NewBootstrap() error = %v", err)
		}
		defer b.Cleanup(ctx)

		if b.CacheMetrics != nil {
			t.Error("CacheMetrics should be nil when metrics are skipped")
		}
	})

	t.Run("Invalid cache config", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testBootstrapConfig(mr)
		cfg.Cache = config.CacheConfig{}
		logger, _ := bufferLogger()

		_, err := NewBootstrap(context.Background(), cfg, WithBootstrapLogger(logger))
		if err == nil || !strings.Contains(err.Error(), "failed to create cache") {
			t.Errorf("NewBootstrap() error = %v, want cache creation failure", err)
		}
	})
}

func TestBootstrapConnectRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testBootstrapConfig(mr)
	mr.Close()

	logger, buf := bufferLogger()
	_, err := NewBootstrap(context.Background(), cfg, WithBootstrapLogger(logger))
	if err == nil {
		t.Fatal("NewBootstrap() error = nil with the store down")
	}
	if !strings.Contains(err.Error(), "failed to connect cache") {
		t.Errorf("error = %v", err)
	}

	retries := strings.Count(buf.String(), "Redis connection failed, retrying")
	if retries < 1 || retries >= int(cfg.Connect.MaxAttempts) {
		t.Errorf("logged %d retries, want between 1 and %d", retries, cfg.Connect.MaxAttempts-1)
	}
	if !strings.Contains(buf.String(), "Cleanup completed") {
		t.Error("partial bootstrap was not cleaned up")
	}
}

func TestBootstrapConnectRecovers(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testBootstrapConfig(mr)
	cfg.Connect.MaxAttempts = 20
	cfg.Connect.InitialBackoff = 20 * time.Millisecond
	cfg.Connect.MaxBackoff = 50 * time.Millisecond

	mr.SetError("LOADING Redis is loading the dataset in memory")
	go func() {
		time.Sleep(100 * time.Millisecond)
		mr.SetError("")
	}()

	logger, buf := bufferLogger()
	ctx := context.Background()
	b, err := NewBootstrap(ctx, cfg, WithBootstrapLogger(logger))
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}
	defer b.Cleanup(ctx)

	if !strings.Contains(buf.String(), "Redis connection failed, retrying") {
		t.Error("expected at least one retry before the store became ready")
	}
}

func TestBootstrapCleanup(t *testing.T) {
	mr := miniredis.RunT(t)
	logger, _ := bufferLogger()

	ctx := context.Background()
	b, err := NewBootstrap(ctx, testBootstrapConfig(mr), WithBootstrapLogger(logger))
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}

	var order []string
	b.AddCleanup(func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	b.AddCleanup(func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	if err := b.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if strings.Join(order, ",") != "second,first" {
		t.Errorf("cleanup order = %v, want LIFO", order)
	}
	if err := b.Cache.Set(ctx, "k", []byte("v")); err == nil {
		t.Error("cache still usable after Cleanup")
	}
}

func TestBootstrapWithTracing(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testBootstrapConfig(mr)
	cfg.Tracing = config.TracingConfig{
		Enabled:    true,
		Endpoint:   "localhost:4317",
		SampleRate: 1.0,
		ExportMode: "grpc",
		Insecure:   true,
	}
	logger, _ := bufferLogger()

	ctx := context.Background()
	b, err := NewBootstrap(ctx, cfg, WithBootstrapLogger(logger))
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}

	if b.TracerProvider == nil {
		t.Error("TracerProvider should be set when tracing enabled")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = b.Cleanup(shutdownCtx)
}

func TestBootstrapWithoutTracing(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testBootstrapConfig(mr)
	cfg.Tracing.Enabled = true
	logger, _ := bufferLogger()

	ctx := context.Background()
	b, err := NewBootstrap(ctx, cfg, WithoutTracing(), WithBootstrapLogger(logger))
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}
	defer b.Cleanup(ctx)

	if b.TracerProvider != nil {
		t.Error("TracerProvider should be nil with WithoutTracing")
	}
}
