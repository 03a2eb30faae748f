// Command kvcached serves the kvcache HTTP API over a shared Redis
// connection.
//
// Configuration comes from an optional YAML/JSON file and KVCACHE_*
// environment variables, for example:
//
//	KVCACHE_CACHE_URL=redis://localhost:6379/0 kvcached -config config.yaml
//
// Endpoints:
//   - API: /v1/keys/{key}, /v1/hashes/{key}, /v1/batch
//   - Health: /health, /health/live, /health/ready
//   - Metrics: :<metrics.port><metrics.path> when metrics are enabled
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Combine-Capital/kvcache/pkg/api"
	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/errors"
	"github.com/Combine-Capital/kvcache/pkg/logging"
	"github.com/Combine-Capital/kvcache/pkg/metrics"
	"github.com/Combine-Capital/kvcache/pkg/service"
	"github.com/Combine-Capital/kvcache/pkg/tracing"
)

const envPrefix = "KVCACHE"

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "kvcached: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath, envPrefix)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := service.NewBootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Cleanup(context.Background()); err != nil {
			b.Logger.Error().Err(err).Msg("Cleanup failed")
		}
	}()

	httpSvc := service.NewHTTPService(cfg.Service.Name, fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		newHandler(b),
		service.WithServerConfig(cfg.Server),
		service.WithLogger(b.Logger),
	)
	if err := httpSvc.Start(ctx); err != nil {
		return err
	}
	b.Health.RegisterChecker("http", httpSvc)

	service.WaitForShutdownWithConfig(ctx, service.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  b.Logger,
	}, httpSvc)
	return nil
}

// newHandler mounts the cache API and health endpoints and wraps them in the
// observability and recovery middlewares.
func newHandler(b *service.Bootstrap) http.Handler {
	mux := http.NewServeMux()
	api.NewHandler(b.Cache, api.WithLogger(b.Logger)).Register(mux)
	mux.HandleFunc("GET /health", b.Health.HealthHandler())
	mux.HandleFunc("GET /health/live", b.Health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", b.Health.ReadinessHandler())

	var h http.Handler = mux
	h = errors.RecoveryMiddleware(nil)(h)
	if b.CacheMetrics != nil {
		h = metrics.HTTPMiddleware(b.Config.Metrics.Namespace)(h)
	}
	h = logging.HTTPMiddleware(b.Logger)(h)
	if b.TracerProvider != nil {
		h = tracing.HTTPMiddleware(b.Config.Service.Name)(h)
	}
	return api.RoutePattern(mux)(h)
}
