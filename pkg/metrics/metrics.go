// Package metrics provides Prometheus metrics for the cache service: a global
// registry exposed over HTTP, validated counter/gauge/histogram wrappers, the
// standard HTTP request metrics with their middleware, and per-operation cache
// metrics.
//
// Example usage:
//
//	if err := metrics.Init(cfg.Metrics); err != nil {
//	    log.Fatal(err)
//	}
//	defer metrics.Shutdown(context.Background())
//
//	cm, err := metrics.InitCacheMetrics(cfg.Metrics.Namespace)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc := cache.New(cfg.Cache, logger, cache.WithMetrics(cm))
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry    *prometheus.Registry
	registryMu  sync.RWMutex
	initialized bool

	// server exposes the registry when metrics are enabled
	server   *http.Server
	serverMu sync.Mutex
)

// Init creates the global registry and, when cfg.Enabled is set, binds the
// metrics endpoint on cfg.Port and serves it in the background.
//
// A disabled configuration still creates an empty registry so collectors can
// be registered unconditionally. Calling Init again is a no-op.
func Init(cfg config.MetricsConfig) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if initialized {
		return nil
	}

	registry = prometheus.NewRegistry()

	if !cfg.Enabled {
		initialized = true
		return nil
	}

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, Handler())

	// Bind synchronously so a busy port fails Init instead of a log line.
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		registry = nil
		return fmt.Errorf("failed to listen on metrics port %d: %w", cfg.Port, err)
	}

	serverMu.Lock()
	server = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	srv := server
	serverMu.Unlock()

	go func() {
		_ = srv.Serve(ln)
	}()

	initialized = true
	return nil
}

// Handler returns an http.Handler serving the global registry in the
// Prometheus exposition format.
func Handler() http.Handler {
	var g prometheus.Gatherer = prometheus.NewRegistry()
	if r := registry; r != nil {
		g = r
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Shutdown gracefully stops the metrics HTTP server, if one was started.
func Shutdown(ctx context.Context) error {
	serverMu.Lock()
	defer serverMu.Unlock()

	if server == nil {
		return nil
	}

	err := server.Shutdown(ctx)
	server = nil
	return err
}

// Registry returns the global Prometheus registry, or nil before Init.
func Registry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}

// IsInitialized reports whether Init has completed.
func IsInitialized() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return initialized
}
