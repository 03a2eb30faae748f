package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/cache"
	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/health"
	"github.com/Combine-Capital/kvcache/pkg/logging"
	"github.com/Combine-Capital/kvcache/pkg/metrics"
	"github.com/Combine-Capital/kvcache/pkg/retry"
	"github.com/Combine-Capital/kvcache/pkg/tracing"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Bootstrap holds the infrastructure shared by the whole process, including
// the single cache service every component uses.
type Bootstrap struct {
	Config         *config.Config
	Logger         *logging.Logger
	TracerProvider *sdktrace.TracerProvider
	CacheMetrics   *metrics.CacheMetrics
	Cache          *cache.RedisService
	Health         *health.Health
	cleanup        *CleanupHandler
}

// BootstrapOption is a functional option for configuring bootstrap behavior.
type BootstrapOption func(*bootstrapConfig)

type bootstrapConfig struct {
	skipMetrics bool
	skipTracing bool
	logger      *logging.Logger
}

// WithoutMetrics disables metrics initialization during bootstrap.
func WithoutMetrics() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipMetrics = true
	}
}

// WithoutTracing disables tracing initialization during bootstrap.
func WithoutTracing() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipTracing = true
	}
}

// WithBootstrapLogger uses logger instead of building one from cfg.Log.
func WithBootstrapLogger(logger *logging.Logger) BootstrapOption {
	return func(c *bootstrapConfig) {
		c.logger = logger
	}
}

// NewBootstrap initializes logger, metrics, tracing and the cache service in
// that order, then connects the cache, retrying per cfg.Connect. On any
// failure the components already initialized are released.
//
//	cfg := config.MustLoad("config.yaml", "KVCACHE")
//	b, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Cleanup(context.Background())
func NewBootstrap(ctx context.Context, cfg *config.Config, opts ...BootstrapOption) (*Bootstrap, error) {
	bc := &bootstrapConfig{}
	for _, opt := range opts {
		opt(bc)
	}

	logger := bc.logger
	if logger == nil {
		logger = logging.New(cfg.Log)
	}
	logger = logger.WithServiceName(cfg.Service.Name)

	b := &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		cleanup: NewCleanupHandler(logger),
	}

	logger.Info().
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Msg("Service starting")

	if !bc.skipMetrics {
		if err := metrics.Init(cfg.Metrics); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		if cfg.Metrics.Enabled {
			b.cleanup.Register(metrics.Shutdown)
			logger.Info().
				Int("port", cfg.Metrics.Port).
				Str("path", cfg.Metrics.Path).
				Msg("Metrics initialized")
		}

		cacheMetrics, err := metrics.InitCacheMetrics(cfg.Metrics.Namespace)
		if err != nil {
			_ = b.Cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize cache metrics: %w", err)
		}
		b.CacheMetrics = cacheMetrics
	}

	if !bc.skipTracing && cfg.Tracing.Enabled {
		serviceName := cfg.Service.Name
		if cfg.Tracing.ServiceName != "" {
			serviceName = cfg.Tracing.ServiceName
		}

		tracerProvider, shutdown, err := tracing.NewTracerProvider(ctx, cfg.Tracing, serviceName)
		if err != nil {
			_ = b.Cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		b.TracerProvider = tracerProvider
		b.cleanup.Register(CleanupFunc(shutdown))

		logger.Info().
			Str("endpoint", cfg.Tracing.Endpoint).
			Float64("sample_rate", cfg.Tracing.SampleRate).
			Msg("Tracing initialized")
	}

	var cacheOpts []cache.Option
	if b.CacheMetrics != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(b.CacheMetrics))
	}
	svc, err := cache.New(cfg.Cache, logger, cacheOpts...)
	if err != nil {
		_ = b.Cleanup(ctx)
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	b.cleanup.Register(func(context.Context) error { return svc.Close() })

	if err := connectCache(ctx, svc, cfg.Connect, logger); err != nil {
		_ = b.Cleanup(ctx)
		return nil, fmt.Errorf("failed to connect cache: %w", err)
	}
	b.Cache = svc

	b.Health = health.New(health.WithLogger(logger))
	b.Health.RegisterChecker("cache", svc)

	return b, nil
}

// connectCache calls Connect until it succeeds or the retry budget of cfg is
// spent.
func connectCache(ctx context.Context, svc *cache.RedisService, cfg config.ConnectConfig, logger *logging.Logger) error {
	rc := retry.FromConnect(cfg)
	rc.Notify = func(err error, delay time.Duration) {
		logger.Warn().
			Err(err).
			Dur("retry_in", delay).
			Msg("Redis connection failed, retrying")
	}

	_, err := retry.DoWithData(ctx, rc, func() (*redis.Client, error) {
		return svc.Connect(ctx)
	})
	return err
}

// Cleanup releases every initialized component in reverse order and returns
// the first error encountered.
func (b *Bootstrap) Cleanup(ctx context.Context) error {
	err := b.cleanup.Execute(ctx)
	b.Logger.Info().Msg("Cleanup completed")
	return err
}

// AddCleanup adds a function to run during Cleanup, before everything
// registered earlier.
//
//	b.AddCleanup(func(ctx context.Context) error {
//	    return httpSvc.Stop(ctx)
//	})
func (b *Bootstrap) AddCleanup(fn func(context.Context) error) {
	b.cleanup.Register(fn)
}
