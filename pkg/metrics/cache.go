package metrics

import (
	"sync"
	"time"
)

// Outcomes recorded for a cache operation.
const (
	ResultOK    = "ok"
	ResultMiss  = "miss"
	ResultError = "error"
)

// CacheMetrics records the outcome and latency of every cache operation.
// A nil *CacheMetrics is valid and records nothing.
type CacheMetrics struct {
	operations *Counter
	duration   *Histogram
}

var (
	cacheMetrics     *CacheMetrics
	cacheMetricsErr  error
	cacheMetricsOnce sync.Once
)

// InitCacheMetrics registers the cache operation metrics under namespace and
// returns the shared recorder. Later calls return the same recorder.
//
// Registered series:
//
//	{namespace}_cache_operations_total{operation,result}
//	{namespace}_cache_operation_duration_seconds{operation}
func InitCacheMetrics(namespace string) (*CacheMetrics, error) {
	cacheMetricsOnce.Do(func() {
		ops, err := NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total number of cache operations by outcome",
			Labels:    []string{"operation", "result"},
		})
		if err != nil {
			cacheMetricsErr = err
			return
		}

		dur, err := NewHistogram(HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Cache operation duration in seconds",
			Labels:    []string{"operation"},
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		})
		if err != nil {
			cacheMetricsErr = err
			return
		}

		cacheMetrics = &CacheMetrics{operations: ops, duration: dur}
	})

	if cacheMetricsErr != nil {
		return nil, cacheMetricsErr
	}
	return cacheMetrics, nil
}

// GetCacheMetrics returns the shared recorder, or nil before InitCacheMetrics.
func GetCacheMetrics() *CacheMetrics {
	return cacheMetrics
}

// Observe records one operation with its result and elapsed time.
func (m *CacheMetrics) Observe(operation, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.Inc(operation, result)
	m.duration.Observe(elapsed.Seconds(), operation)
}
