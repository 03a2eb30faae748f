package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// TestHTTPService tests the HTTP service lifecycle.
func TestHTTPService(t *testing.T) {
	t.Run("Start serve stop", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(config.LogConfig{Level: "info"}, &buf)
		svc := NewHTTPService("api", "127.0.0.1:0", okHandler(), WithLogger(logger))

		ctx := context.Background()
		if err := svc.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := svc.Health(); err != nil {
			t.Errorf("Health() after Start = %v", err)
		}
		if err := svc.Check(ctx); err != nil {
			t.Errorf("Check() after Start = %v", err)
		}

		resp, err := http.Get("http://" + svc.Addr() + "/")
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || string(body) != "ok" {
			t.Errorf("response = %d %q", resp.StatusCode, body)
		}

		if err := svc.Stop(ctx); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if err := svc.Health(); err == nil {
			t.Error("Health() after Stop should error")
		}

		out := buf.String()
		if !strings.Contains(out, "HTTP service listening") || !strings.Contains(out, "HTTP service stopped") {
			t.Errorf("lifecycle not logged: %s", out)
		}
		if !strings.Contains(out, `"component":"api"`) {
			t.Errorf("logs missing component: %s", out)
		}
	})

	t.Run("Double start", func(t *testing.T) {
		svc := NewHTTPService("api", "127.0.0.1:0", okHandler())
		ctx := context.Background()
		if err := svc.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		defer svc.Stop(ctx)

		if err := svc.Start(ctx); err == nil {
			t.Error("second Start() should error")
		}
	})

	t.Run("Port in use", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer ln.Close()

		svc := NewHTTPService("api", ln.Addr().String(), okHandler())
		if err := svc.Start(context.Background()); err == nil {
			t.Error("Start() on a bound port should error")
		}
		if err := svc.Health(); err == nil {
			t.Error("Health() should error when Start failed")
		}
	})

	t.Run("Stop before start", func(t *testing.T) {
		svc := NewHTTPService("api", "127.0.0.1:0", okHandler())
		if err := svc.Stop(context.Background()); err != nil {
			t.Errorf("Stop() before Start = %v", err)
		}
	})

	t.Run("Addr before start", func(t *testing.T) {
		svc := NewHTTPService("api", "127.0.0.1:0", okHandler())
		if svc.Addr() != "127.0.0.1:0" {
			t.Errorf("Addr() = %q", svc.Addr())
		}
		if svc.Name() != "api" {
			t.Errorf("Name() = %q", svc.Name())
		}
	})
}

func TestHTTPServiceOptions(t *testing.T) {
	svc := NewHTTPService("api", ":0", okHandler(),
		WithReadTimeout(time.Second),
		WithWriteTimeout(2*time.Second),
		WithShutdownTimeout(3*time.Second),
		WithMaxHeaderBytes(4096),
	)
	if svc.readTimeout != time.Second || svc.writeTimeout != 2*time.Second ||
		svc.shutdownTimeout != 3*time.Second || svc.maxHeaderBytes != 4096 {
		t.Errorf("options not applied: %+v", svc)
	}

	fromCfg := NewHTTPService("api", ":0", okHandler(), WithServerConfig(config.ServerConfig{
		ReadTimeout:     5 * time.Second,
		ShutdownTimeout: 7 * time.Second,
	}))
	if fromCfg.readTimeout != 5*time.Second || fromCfg.shutdownTimeout != 7*time.Second {
		t.Errorf("server config not applied: %+v", fromCfg)
	}
	if fromCfg.writeTimeout != 10*time.Second || fromCfg.maxHeaderBytes != 1<<20 {
		t.Errorf("zero values overrode defaults: %+v", fromCfg)
	}
}

func TestHTTPServiceContextCancellation(t *testing.T) {
	svc := NewHTTPService("api", "127.0.0.1:0", okHandler())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Start(ctx); err != context.Canceled {
		t.Errorf("Start() with cancelled ctx = %v, want context.Canceled", err)
	}
}

// TestCleanupHandler tests cleanup ordering and error collection.
func TestCleanupHandler(t *testing.T) {
	t.Run("Execute in LIFO order", func(t *testing.T) {
		cleanup := NewCleanupHandler(nil)
		var order []int

		for i := 1; i <= 3; i++ {
			i := i
			cleanup.Register(func(ctx context.Context) error {
				order = append(order, i)
				return nil
			})
		}

		if err := cleanup.Execute(context.Background()); err != nil {
			t.Errorf("Execute() error = %v", err)
		}
		if fmt.Sprint(order) != "[3 2 1]" {
			t.Errorf("order = %v, want [3 2 1]", order)
		}
	})

	t.Run("Collect errors but continue", func(t *testing.T) {
		var buf bytes.Buffer
		cleanup := NewCleanupHandler(logging.NewWithWriter(config.LogConfig{Level: "info"}, &buf))
		ran := false

		cleanup.Register(func(ctx context.Context) error {
			ran = true
			return nil
		})
		cleanup.Register(func(ctx context.Context) error {
			return fmt.Errorf("error 2")
		})
		cleanup.Register(func(ctx context.Context) error {
			return fmt.Errorf("error 3")
		})

		err := cleanup.Execute(context.Background())
		if err == nil || err.Error() != "error 3" {
			t.Errorf("Execute() error = %v, want error 3", err)
		}
		if !ran {
			t.Error("cleanup stopped at the first failure")
		}
		if got := strings.Count(buf.String(), "Cleanup error"); got != 2 {
			t.Errorf("logged %d cleanup errors, want 2", got)
		}
	})
}

// TestShutdownConfig tests shutdown configuration.
func TestShutdownConfig(t *testing.T) {
	cfg := DefaultShutdownConfig()
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if len(cfg.Signals) != 2 || cfg.Signals[0] != syscall.SIGINT || cfg.Signals[1] != syscall.SIGTERM {
		t.Errorf("Signals = %v", cfg.Signals)
	}
}

func TestWaitForShutdownOnSignal(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(config.LogConfig{Level: "info"}, &buf)

	svc := NewHTTPService("api", "127.0.0.1:0", okHandler())
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		WaitForShutdownWithConfig(ctx, ShutdownConfig{
			Timeout: time.Second,
			Signals: []os.Signal{syscall.SIGUSR2},
			Logger:  logger,
		}, svc)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	proc, _ := os.FindProcess(os.Getpid())
	_ = proc.Signal(syscall.SIGUSR2)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete in time")
	}

	if err := svc.Health(); err == nil {
		t.Error("service still running after shutdown")
	}
	out := buf.String()
	if !strings.Contains(out, "Received signal") || !strings.Contains(out, "Graceful shutdown completed") {
		t.Errorf("shutdown not logged: %s", out)
	}
}

func TestWaitForShutdownOnContext(t *testing.T) {
	svc := NewHTTPService("api", "127.0.0.1:0", okHandler())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, nil, svc)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete in time")
	}
	if err := svc.Health(); err == nil {
		t.Error("service still running after shutdown")
	}
}

type failingService struct{ stopped bool }

func (f *failingService) Start(context.Context) error { return fmt.Errorf("boom") }
func (f *failingService) Stop(context.Context) error { f.stopped = true; return fmt.Errorf("stuck") }
func (f *failingService) Name() string { return "failing" }
func (f *failingService) Health() error { return fmt.Errorf("down") }

func TestWaitForShutdownContinuesPastFailures(t *testing.T) {
	failing := &failingService{}
	healthy := NewHTTPService("api", "127.0.0.1:0", okHandler())
	if err := healthy.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	WaitForShutdownWithConfig(ctx, ShutdownConfig{Timeout: time.Second}, failing, healthy)

	if !failing.stopped {
		t.Error("failing service was not asked to stop")
	}
	if err := healthy.Health(); err == nil {
		t.Error("second service not stopped after first failed")
	}
}

func TestWithShutdownHandler(t *testing.T) {
	if err := WithShutdownHandler(context.Background(), nil, &failingService{}); err == nil {
		t.Error("WithShutdownHandler() should return the start error")
	}
}

// TestServiceInterface verifies HTTPService satisfies Service.
func TestServiceInterface(t *testing.T) {
	var _ Service = (*HTTPService)(nil)
	var _ Service = (*failingService)(nil)
}
