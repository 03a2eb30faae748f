package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPMiddleware records the standard HTTP metrics for every request. The
// path label is the matched ServeMux pattern when one is available, so keys
// embedded in URLs do not explode label cardinality.
func HTTPMiddleware(namespace string) func(http.Handler) http.Handler {
	if err := InitStandardMetrics(namespace); err != nil {
		fmt.Printf("failed to initialize standard metrics: %v\n", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestSize := computeRequestSize(r)

			wrapped := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			path := routeLabel(r)
			statusCode := strconv.Itoa(wrapped.statusCode)

			if httpRequestSize != nil {
				httpRequestSize.Observe(float64(requestSize), r.Method, path)
			}
			if httpRequestDuration != nil {
				httpRequestDuration.Observe(time.Since(start).Seconds(), r.Method, path, statusCode)
			}
			if httpRequestCount != nil {
				httpRequestCount.Inc(r.Method, path, statusCode)
			}
			if httpResponseSize != nil {
				httpResponseSize.Observe(float64(wrapped.bytesWritten), r.Method, path, statusCode)
			}
		})
	}
}

func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

// metricsResponseWriter captures status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	written      bool
}

func (m *metricsResponseWriter) WriteHeader(code int) {
	if !m.written {
		m.statusCode = code
		m.written = true
		m.ResponseWriter.WriteHeader(code)
	}
}

func (m *metricsResponseWriter) Write(b []byte) (int, error) {
	if !m.written {
		m.WriteHeader(http.StatusOK)
	}
	n, err := m.ResponseWriter.Write(b)
	m.bytesWritten += n
	return n, err
}

// computeRequestSize estimates the wire size of r in bytes.
func computeRequestSize(r *http.Request) int64 {
	size := int64(len(r.Method) + len(r.URL.String()) + len(r.Proto))

	for name, values := range r.Header {
		size += int64(len(name))
		for _, value := range values {
			size += int64(len(value))
		}
	}

	if r.ContentLength > 0 {
		size += r.ContentLength
	}

	return size
}
