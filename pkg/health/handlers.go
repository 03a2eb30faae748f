package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler always answers 200 {"status":"alive"}.
func (h *Health) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadinessHandler answers 200 when every checker passes and 503 otherwise,
// with the per-component results as the body.
func (h *Health) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := h.Check(r.Context())
		writeJSON(w, statusFor(result), result)
	}
}

// HealthHandler combines liveness and readiness in one response.
func (h *Health) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := h.Check(r.Context())
		writeJSON(w, statusFor(result), map[string]interface{}{
			"liveness":  "alive",
			"readiness": result,
		})
	}
}

func statusFor(result *HealthResult) int {
	if result.Status == StatusHealthy {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
