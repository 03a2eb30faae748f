// Package logging provides structured logging with zerolog.
// It supports configurable log levels, output formats (JSON/console), component
// tagging, and request-scoped fields carried through context.Context.
//
// Example usage:
//
//	cfg := config.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//	logger := logging.New(cfg)
//	logger.WithComponent("RedisService").Warn().Msg("Not found key: user:1")
package logging

// Standard field names for structured logging.
const (
	TraceID     = "trace_id"
	SpanID      = "span_id"
	ServiceName = "service_name"
	Component   = "component"
	Error       = "error"
	Key         = "key"

	// HTTP request fields.
	RequestID  = "request_id"
	Method     = "method"
	Path       = "path"
	StatusCode = "status_code"
	Duration   = "duration_ms"

	// Request summary fields emitted once per completed request.
	HandlerContext = "context"
	URL            = "url"
	Runtime        = "runtime"
	Time           = "time_ms"
)
