package cache

import (
	"strings"
)

// Key joins prefix and parts with colons, skipping empty segments.
//
//	cache.Key("session", id)          // "session:42"
//	cache.Key("queue", tenant, "jobs") // "queue:acme:jobs"
func Key(prefix string, parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	if prefix != "" {
		segments = append(segments, prefix)
	}
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}
