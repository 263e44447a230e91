// Package apperr defines the error categories surfaced by the pairing and
// question engines. Provider messages are passed through untouched.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means no caller identity could be resolved
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrValidation means the input was malformed
	ErrValidation = errors.New("validation error")
	// ErrNoCouple means the caller has no couple membership
	ErrNoCouple = errors.New("no couple")
)

// Validation returns an error wrapping ErrValidation with the given message
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// RemoteError is a rejection or failure reported by the storage provider or
// an external service. Error returns the provider's message verbatim.
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string {
	return e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Remote wraps err as a RemoteError. Errors that already belong to a
// category are returned unchanged.
func Remote(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrValidation) || errors.Is(err, ErrNoCouple) {
		return err
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Err: err}
}

// IsRemote reports whether err is a RemoteError
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
