package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration *Histogram
	httpRequestCount    *Counter
	httpRequestSize     *Histogram
	httpResponseSize    *Histogram

	standardMetricsOnce sync.Once
)

// InitStandardMetrics registers the standard HTTP request metrics under the
// given namespace. HTTPMiddleware calls it on construction; later calls are
// no-ops.
func InitStandardMetrics(namespace string) error {
	var initErr error

	standardMetricsOnce.Do(func() {
		httpRequestDuration, initErr = NewHistogram(HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Labels:    []string{"method", "path", "status_code"},
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		})
		if initErr != nil {
			return
		}

		httpRequestCount, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
			Labels:    []string{"method", "path", "status_code"},
		})
		if initErr != nil {
			return
		}

		httpRequestSize, initErr = NewHistogram(HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_size_bytes",
			Help:      "HTTP request size in bytes",
			Labels:    []string{"method", "path"},
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		})
		if initErr != nil {
			return
		}

		httpResponseSize, initErr = NewHistogram(HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Labels:    []string{"method", "path", "status_code"},
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		})
	})

	return initErr
}

// GetHTTPRequestDuration returns the request duration histogram, or nil
// before InitStandardMetrics.
func GetHTTPRequestDuration() *Histogram {
	return httpRequestDuration
}

// GetHTTPRequestCount returns the request counter, or nil before
// InitStandardMetrics.
func GetHTTPRequestCount() *Counter {
	return httpRequestCount
}

func GetHTTPRequestSize() *Histogram {
	return httpRequestSize
}

func GetHTTPResponseSize() *Histogram {
	return httpResponseSize
}
