package coerce

import (
	"errors"
	"fmt"
)

// ErrUnrepairable matches every *UnrepairableError via errors.Is.
var ErrUnrepairable = errors.New("unrepairable response")

var (
	errEmpty     = errors.New("empty content")
	errNotObject = errors.New("top-level value is not an object")
)

// UnrepairableError is returned when no repair stage produced a JSON object.
type UnrepairableError struct {
	// Snippet is the start of the sanitized text, for diagnostics.
	Snippet string

	// Cause is the parse error of the last stage.
	Cause error
}

// Error implements the error interface.
func (e *UnrepairableError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("unrepairable response: %v", e.Cause)
	}
	return fmt.Sprintf("unrepairable response: %v; snippet=%q", e.Cause, e.Snippet)
}

// Unwrap returns the underlying parse error.
func (e *UnrepairableError) Unwrap() error {
	return e.Cause
}

// Is matches ErrUnrepairable.
func (e *UnrepairableError) Is(target error) bool {
	return target == ErrUnrepairable
}
