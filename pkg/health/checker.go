// Package health aggregates component health checks behind liveness and
// readiness HTTP endpoints.
//
//	h := health.New(health.WithLogger(logger))
//	h.RegisterChecker("cache", redisService)
//
//	mux.HandleFunc("GET /health/live", h.LivenessHandler())
//	mux.HandleFunc("GET /health/ready", h.ReadinessHandler())
//
// Liveness never consults dependencies. Readiness runs every registered
// checker concurrently and reports 503 when any of them fails.
package health

import (
	"context"
)

// Checker is implemented by components that can report their health.
// Check must respect the deadline carried by ctx.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Check calls f(ctx).
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}
