// Package retry runs an operation with exponential backoff on top of
// github.com/cenkalti/backoff/v5. Which failures are retried is decided by a
// Policy over the error categories of pkg/errors.
//
// The cache service only retries establishing its store connection at
// startup; individual cache operations are never retried.
//
//	err := retry.Do(ctx, retry.FromConnect(cfg.Connect), func() error {
//		_, err := svc.Connect(ctx)
//		return err
//	})
package retry

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

// Do calls fn until it succeeds, the policy rejects its error, the attempts
// or elapsed time are exhausted, or ctx is done. It returns the last error.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithData(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithData is Do for operations that produce a value.
//
//	client, err := retry.DoWithData(ctx, cfg, func() (*redis.Client, error) {
//		return svc.Connect(ctx)
//	})
func DoWithData[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = cfg.Jitter

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(cfg.MaxAttempts),
	}
	if cfg.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(cfg.MaxElapsedTime))
	}
	if cfg.Notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(cfg.Notify)))
	}

	operation := func() (T, error) {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !cfg.shouldRetry(err) {
			var zero T
			return zero, backoff.Permanent(err)
		}
		return result, err
	}

	return backoff.Retry(ctx, operation, opts...)
}
