package cache

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/errors"
	"github.com/Combine-Capital/kvcache/pkg/logging"
	"github.com/Combine-Capital/kvcache/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// source names this component in log lines and error signals.
const source = "RedisService"

// RedisService implements Service over one go-redis client.
type RedisService struct {
	client     *redis.Client
	cfg        config.CacheConfig
	logger     *logging.Logger
	metrics    *metrics.CacheMetrics
	defaultTTL SetOptions
}

// Option configures a RedisService.
type Option func(*RedisService)

// WithMetrics records every operation on m.
func WithMetrics(m *metrics.CacheMetrics) Option {
	return func(r *RedisService) { r.metrics = m }
}

// New builds the client handle from cfg without contacting the store; call
// Connect to verify reachability. A nil logger discards log output.
func New(cfg config.CacheConfig, logger *logging.Logger, opts ...Option) (*RedisService, error) {
	clientOpts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.Nop()
	}

	r := &RedisService{
		client:     redis.NewClient(clientOpts),
		cfg:        cfg,
		logger:     logger.WithComponent(source),
		defaultTTL: SetOptions{TTL: cfg.DefaultTTL},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// clientOptions maps cfg onto go-redis options. A URL wins over the discrete
// host fields; explicitly configured tuning values override the URL's.
func clientOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options

	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, errors.NewInvalidInputWithCause("cache.url", "invalid redis url", err)
		}
		opts = parsed
	} else {
		if cfg.Host == "" {
			return nil, errors.NewInvalidInput("cache.host", "host or url is required")
		}
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
		if cfg.TLS {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: cfg.Host,
			}
		}
	}

	if cfg.ClientName != "" {
		opts.ClientName = cfg.ClientName
	}
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}

	return opts, nil
}

// Connect pings the store and, on success, logs "Redis connected!" and
// returns the client handle. Transport errors are returned as-is.
func (r *RedisService) Connect(ctx context.Context) (*redis.Client, error) {
	ctx, op := r.startOp(ctx, "Connect", "")
	if err := r.client.Ping(ctx).Err(); err != nil {
		op.finish(err)
		return nil, err
	}
	op.finish(nil)

	r.logger.Info().Msg("Redis connected!")
	return r.client, nil
}

// Client returns the underlying client handle.
func (r *RedisService) Client() *redis.Client {
	return r.client
}

// CheckHealth pings the store.
func (r *RedisService) CheckHealth(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewTemporary("redis health check failed", err)
	}
	return nil
}

// Check implements health.Checker.
//
//	h.RegisterChecker("cache", svc)
func (r *RedisService) Check(ctx context.Context) error {
	return r.CheckHealth(ctx)
}

// Close releases the client handle.
func (r *RedisService) Close() error {
	return r.client.Close()
}
