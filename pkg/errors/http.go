package errors

import (
	"encoding/json"
	"net/http"
)

// HTTPStatusCode returns the appropriate HTTP status code for the given error.
//   - Error -> its own Code
//   - NotFoundError -> 404 Not Found
//   - InvalidInputError -> 400 Bad Request
//   - TemporaryError -> 503 Service Unavailable
//   - PermanentError and unknown errors -> 500 Internal Server Error
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if e, ok := AsError(err); ok && e.code != 0 {
		return int(e.code)
	}

	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsTemporary(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON body written by WriteHTTPError.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Source  string `json:"source,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// WriteHTTPError writes a JSON error response with the status derived from err.
func WriteHTTPError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	status := HTTPStatusCode(err)
	body := ErrorResponse{Message: err.Error(), Status: status}
	if e, ok := AsError(err); ok {
		body.Source = e.source
		body.Kind = string(e.kind)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
