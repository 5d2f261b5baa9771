package timing

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state of the clock, e.g. advancing a disabled clock or enabling
	// an enabled one.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument is returned when an operation receives an unusable
	// value, such as a negative time or an unknown facility. The operation has
	// no effect.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAborted matches every AbortError through errors.Is.
	ErrAborted = errors.New("the operation was aborted")
)

// AbortError reports that a pending delay or interval was cancelled through
// its context. Cause is the cancellation reason.
type AbortError struct {
	Cause error
}

// NewAbortError creates an AbortError with the given cause.
func NewAbortError(cause error) *AbortError {
	return &AbortError{Cause: cause}
}

func (e *AbortError) Error() string {
	if e.Cause == nil {
		return ErrAborted.Error()
	}

	return ErrAborted.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the cancellation reason.
func (e *AbortError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrAborted.
func (e *AbortError) Is(target error) bool {
	return target == ErrAborted
}
