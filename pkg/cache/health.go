package cache

import (
	"context"
	"time"
)

// HealthChecker is satisfied by anything that can ping its store.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckHealthWithTimeout runs c.CheckHealth bounded by timeout.
func CheckHealthWithTimeout(c HealthChecker, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.CheckHealth(ctx)
}
