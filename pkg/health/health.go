package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/logging"
)

// Aggregate and per-check statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	CheckOK         = "ok"
	CheckError      = "error"
)

// Health runs registered checkers and caches the aggregated result briefly
// so probes arriving together do not stampede the store.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]Checker

	cacheMu      sync.Mutex
	cachedResult *HealthResult
	cacheExpiry  time.Time

	cacheTTL     time.Duration
	checkTimeout time.Duration
	logger       *logging.Logger
}

// HealthResult is the aggregated outcome of all checks.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Option configures a Health.
type Option func(*Health)

// WithCheckTimeout bounds each checker when the caller's context has no
// deadline. Default 5s.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Health) { h.checkTimeout = d }
}

// WithCacheTTL sets how long an aggregated result is reused. Default 1s;
// zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(h *Health) { h.cacheTTL = d }
}

// WithLogger logs failing checks at warn level.
func WithLogger(l *logging.Logger) Option {
	return func(h *Health) { h.logger = l.WithComponent("Health") }
}

// New creates a Health with no checkers registered.
func New(opts ...Option) *Health {
	h := &Health{
		checkers:     make(map[string]Checker),
		checkTimeout: 5 * time.Second,
		cacheTTL:     time.Second,
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterChecker registers checker under name, replacing any previous one.
func (h *Health) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	h.checkers[name] = checker
	h.mu.Unlock()
	h.ClearCache()
}

// UnregisterChecker removes the checker named name and reports whether one
// was registered.
func (h *Health) UnregisterChecker(name string) bool {
	h.mu.Lock()
	_, exists := h.checkers[name]
	delete(h.checkers, name)
	h.mu.Unlock()

	if exists {
		h.ClearCache()
	}
	return exists
}

// Check returns the aggregated result, running the checkers unless a result
// younger than the cache TTL is available.
func (h *Health) Check(ctx context.Context) *HealthResult {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()

	if h.cachedResult != nil && time.Now().Before(h.cacheExpiry) {
		return h.cachedResult
	}

	result := h.executeChecks(ctx)
	h.cachedResult = result
	h.cacheExpiry = time.Now().Add(h.cacheTTL)
	return result
}

func (h *Health) executeChecks(ctx context.Context) *HealthResult {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	result := &HealthResult{
		Status: StatusHealthy,
		Checks: make(map[string]CheckResult, len(checkers)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()

			start := time.Now()
			err := h.runCheck(ctx, checker)
			cr := CheckResult{Status: CheckOK, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				cr.Status = CheckError
				cr.Message = err.Error()
				h.logger.Warn().Str("check", name).Err(err).Msg("health check failed")
			}

			mu.Lock()
			result.Checks[name] = cr
			if err != nil {
				result.Status = StatusUnhealthy
			}
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	return result
}

func (h *Health) runCheck(ctx context.Context, checker Checker) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkTimeout)
		defer cancel()
	}
	return checker.Check(ctx)
}

// CheckComponent runs only the checker registered under name, bypassing the
// result cache.
func (h *Health) CheckComponent(ctx context.Context, name string) error {
	h.mu.RLock()
	checker, exists := h.checkers[name]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("health checker %q not registered", name)
	}
	return h.runCheck(ctx, checker)
}

// IsHealthy reports whether every registered checker passes.
func (h *Health) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Status == StatusHealthy
}

// ClearCache forces the next Check to run the checkers.
func (h *Health) ClearCache() {
	h.cacheMu.Lock()
	h.cachedResult = nil
	h.cacheExpiry = time.Time{}
	h.cacheMu.Unlock()
}
