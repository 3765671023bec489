package chat

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument reports a validation failure: a malformed resource name,
// an out-of-range value, or an unknown enum after fallbacks are exhausted.
var ErrInvalidArgument = errors.New("invalid argument")

// BackendError wraps a failure from the underlying chat API with the
// operation that caused it.
type BackendError struct {
	Op     string // backend operation, e.g. "messages.list"
	Reason string // human-readable reason from the backend
	Err    error  // underlying error, may be nil
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Op, e.Reason)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Backendf builds a BackendError with a formatted reason.
func Backendf(op string, err error, format string, args ...any) *BackendError {
	return &BackendError{Op: op, Reason: fmt.Sprintf(format, args...), Err: err}
}
