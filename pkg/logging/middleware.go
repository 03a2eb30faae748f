package logging

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPMiddleware is an HTTP middleware that logs every request.
//
// A request ID is taken from X-Request-ID or generated, stored in the request
// context together with the logger, and echoed back in the response header.
// One line is logged when the request starts and one when it completes; the
// completion line carries the route that served it (context), host and path
// (url), the elapsed time as "<n>ms" (runtime) and the completion time in
// unix milliseconds (time_ms). 5xx responses are logged at error level.
func HTTPMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = generateRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := WithRequestID(r.Context(), requestID)
			ctx = WithLogger(ctx, logger)
			r = r.WithContext(ctx)

			logger.Info().
				Str(RequestID, requestID).
				Str(Method, r.Method).
				Str(Path, r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("request started")

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			end := time.Now()
			elapsed := end.Sub(start).Milliseconds()

			logEvent := logger.Info()
			if wrapped.statusCode >= 500 {
				logEvent = logger.Error()
			}

			logEvent.
				Str(RequestID, requestID).
				Str(HandlerContext, handlerContext(r)).
				Str(URL, r.Host+r.URL.RequestURI()).
				Str(Runtime, fmt.Sprintf("%dms", elapsed)).
				Int64(Time, end.UnixMilli()).
				Str(Method, r.Method).
				Int(StatusCode, wrapped.statusCode).
				Int64(Duration, elapsed).
				Msg("request completed")
		})
	}
}

// handlerContext names the handler that served r: the matched mux pattern
// when routing went through a ServeMux, the raw path otherwise.
func handlerContext(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " " + r.URL.Path
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func generateRequestID() string {
	return uuid.NewString()
}
