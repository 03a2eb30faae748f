// Package client is the Go client of the kvcache HTTP API. Its operations
// mirror cache.Service, and failures answered by the server are turned back
// into the same error values: a cache_write signal raised by the server's
// RedisService surfaces here as an *errors.Error with the same kind, message
// and source.
//
// Example usage:
//
//	c, err := client.New(config.ClientConfig{BaseURL: "http://localhost:8080"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Set(ctx, "session:42", token, cache.WithTTL(time.Hour)); err != nil {
//	    log.Fatal(err)
//	}
//	value, found, err := c.Get(ctx, "session:42")
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/config"
	"github.com/Combine-Capital/kvcache/pkg/errors"
	"github.com/Combine-Capital/kvcache/pkg/logging"
	"github.com/Combine-Capital/kvcache/pkg/retry"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// Client talks to one kvcached instance. It is safe for concurrent use.
type Client struct {
	resty   *resty.Client
	config  config.ClientConfig
	retry   retry.Config
	limiter *rate.Limiter
	logger  *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger logs every completed request on logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at cfg.BaseURL.
func New(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	cfg = applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid client config")
	}

	restyClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	restyClient.SetTransport(&http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	})

	c := &Client{
		resty:  restyClient,
		config: cfg,
		retry: retry.Config{
			MaxAttempts:  uint(cfg.RetryCount) + 1,
			InitialDelay: cfg.RetryWaitTime,
			MaxDelay:     cfg.RetryMaxWaitTime,
			PolicyFunc:   errors.IsTemporary,
		},
		logger: logging.Nop(),
	}
	if cfg.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("KVCacheClient")
	c.installLogging()

	return c, nil
}

// retryableStatus reports gateway-style answers worth another attempt.
// Cache signals answered with 500 are final.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) installLogging() {
	c.resty.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		statusCode := resp.StatusCode()

		event := c.logger.Debug()
		if statusCode >= 500 {
			event = c.logger.Warn()
		}
		event.
			Str(logging.Method, resp.Request.Method).
			Str(logging.URL, resp.Request.URL).
			Int(logging.StatusCode, statusCode).
			Msg("kvcache request completed")
		return nil
	})
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.resty.Close()
	return nil
}

// wait enforces the configured rate limit.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait failed")
	}
	return nil
}

func applyDefaults(cfg config.ClientConfig) config.ClientConfig {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWaitTime == 0 {
		cfg.RetryWaitTime = 100 * time.Millisecond
	}
	if cfg.RetryMaxWaitTime == 0 {
		cfg.RetryMaxWaitTime = 2 * time.Second
	}
	if cfg.RateLimitBurst == 0 && cfg.RateLimitPerSecond > 0 {
		cfg.RateLimitBurst = 1
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	return cfg
}

func validateConfig(cfg config.ClientConfig) error {
	if cfg.BaseURL == "" {
		return errors.NewInvalidInput("base_url", "base url is required")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got: %v", cfg.Timeout)
	}
	if cfg.RetryCount < 0 {
		return fmt.Errorf("retry_count must be non-negative, got: %d", cfg.RetryCount)
	}
	if cfg.RateLimitPerSecond < 0 {
		return fmt.Errorf("rate_limit_per_second must be non-negative, got: %f", cfg.RateLimitPerSecond)
	}
	return nil
}
