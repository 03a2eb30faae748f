package errors

import (
	"fmt"
)

// Wrap wraps an error with additional context while preserving its category.
// An Error signal is returned untouched: its message, code and source are the
// contract with the caller. Uncategorised errors become a PermanentError.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsKind(err, KindCacheWrite), IsKind(err, KindCacheDelete), IsKind(err, KindCacheExpiry):
		return err
	case IsTemporary(err):
		return NewTemporary(msg, err)
	case IsNotFound(err):
		var nfe *NotFoundError
		if As(err, &nfe) {
			return NewNotFoundWithCause(nfe.resource, nfe.id, err)
		}
		return NewPermanent(msg, err)
	case IsInvalidInput(err):
		var iie *InvalidInputError
		if As(err, &iie) {
			return NewInvalidInputWithCause(iie.field, msg, err)
		}
		return NewInvalidInput("", msg)
	default:
		return NewPermanent(msg, err)
	}
}

// Wrapf wraps an error with a formatted message while preserving its category.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
