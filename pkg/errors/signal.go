package errors

import (
	"net/http"
)

// Code is the severity classification carried by an Error.
// Values line up with HTTP status codes so the HTTP surface can use them as-is.
type Code int

const (
	// CodeInternal classifies failures of the service itself.
	CodeInternal Code = http.StatusInternalServerError
)

// Kind tags which operation produced an Error.
type Kind string

const (
	KindUnknown     Kind = ""
	KindCacheWrite  Kind = "cache_write"
	KindCacheDelete Kind = "cache_delete"
	KindCacheExpiry Kind = "cache_expiry"
	KindPanic       Kind = "panic"
)

// Error is the uniform failure signal. It aborts the current operation and
// propagates to the caller unchanged.
type Error struct {
	kind    Kind
	message string
	code    Code
	source  string
}

// New creates an Error from a message, a severity code and the name of the
// component raising it.
func New(kind Kind, message string, code Code, source string) error {
	return &Error{kind: kind, message: message, code: code, source: source}
}

// Internal creates an Error with the internal severity classification.
func Internal(kind Kind, source, message string) error {
	return New(kind, message, CodeInternal, source)
}

func (e *Error) Error() string {
	return e.message
}

// Kind returns the operation tag.
func (e *Error) Kind() Kind {
	return e.kind
}

// Message returns the human-readable message.
func (e *Error) Message() string {
	return e.message
}

// Code returns the severity classification.
func (e *Error) Code() Code {
	return e.code
}

// Source returns the originating component name.
func (e *Error) Source() string {
	return e.source
}
