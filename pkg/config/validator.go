package config

import (
	"fmt"
	"net/url"
	"time"
)

// maxDB is the highest logical database index a default Redis server exposes.
const maxDB = 15

// Validate validates the configuration and returns an error if any required fields are missing
// or have invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535")
	}

	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
		}
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0")
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == 0 {
			return fmt.Errorf("metrics.port is required when metrics are enabled")
		}
		if cfg.Metrics.Port == cfg.Server.HTTPPort {
			return fmt.Errorf("metrics.port must differ from server.http_port")
		}
	}

	return nil
}

func validateCache(c *CacheConfig) error {
	if c.URL == "" && c.Host == "" {
		return fmt.Errorf("cache.url or cache.host is required")
	}

	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("cache.url is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("cache.url scheme must be redis or rediss, got %q", u.Scheme)
		}
	} else if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("cache.port must be between 1 and 65535")
	}

	if c.DB < 0 || c.DB > maxDB {
		return fmt.Errorf("cache.db must be between 0 and %d", maxDB)
	}

	for name, d := range map[string]time.Duration{
		"cache.dial_timeout":  c.DialTimeout,
		"cache.read_timeout":  c.ReadTimeout,
		"cache.write_timeout": c.WriteTimeout,
		"cache.default_ttl":   c.DefaultTTL,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.PoolSize < 0 || c.MinIdleConns < 0 {
		return fmt.Errorf("cache.pool_size and cache.min_idle_conns must not be negative")
	}

	return nil
}

// applyDefaults applies default values to the configuration where values are not set.
func applyDefaults(cfg *Config) {
	// Service defaults
	if cfg.Service.Name == "" {
		cfg.Service.Name = "kvcache"
	}
	if cfg.Service.Env == "" {
		cfg.Service.Env = "development"
	}

	// Server defaults
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20 // 1 MB
	}

	// Cache defaults
	if cfg.Cache.Port == 0 && cfg.Cache.Host != "" {
		cfg.Cache.Port = 6379
	}
	if cfg.Cache.ClientName == "" {
		cfg.Cache.ClientName = cfg.Service.Name
	}
	if cfg.Cache.MaxRetries == 0 {
		cfg.Cache.MaxRetries = 3
	}
	if cfg.Cache.DialTimeout == 0 {
		cfg.Cache.DialTimeout = 5 * time.Second
	}
	if cfg.Cache.ReadTimeout == 0 {
		cfg.Cache.ReadTimeout = 3 * time.Second
	}
	if cfg.Cache.WriteTimeout == 0 {
		cfg.Cache.WriteTimeout = 3 * time.Second
	}
	if cfg.Cache.PoolSize == 0 {
		cfg.Cache.PoolSize = 10
	}
	if cfg.Cache.MinIdleConns == 0 {
		cfg.Cache.MinIdleConns = 2
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 && cfg.Metrics.Enabled {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = cfg.Service.Name
	}

	// Tracing defaults
	if cfg.Tracing.SampleRate == 0 && cfg.Tracing.Enabled {
		cfg.Tracing.SampleRate = 0.1 // 10% sampling by default
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.Service.Name
	}
	if cfg.Tracing.Environment == "" {
		cfg.Tracing.Environment = cfg.Service.Env
	}
	if cfg.Tracing.ExportMode == "" {
		cfg.Tracing.ExportMode = "grpc"
	}
	if cfg.Tracing.BatchTimeout == 0 {
		cfg.Tracing.BatchTimeout = 5 * time.Second
	}

	// Connect defaults
	if cfg.Connect.MaxAttempts == 0 {
		cfg.Connect.MaxAttempts = 5
	}
	if cfg.Connect.InitialBackoff == 0 {
		cfg.Connect.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.Connect.MaxBackoff == 0 {
		cfg.Connect.MaxBackoff = 5 * time.Second
	}
	if cfg.Connect.Timeout == 0 {
		cfg.Connect.Timeout = 30 * time.Second
	}
}
