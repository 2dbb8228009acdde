package outputmode

import "fmt"

// UnsupportedError records why a smoke test rejected a mode.
// Negotiation consumes these values; they only surface through ProbeReport.
type UnsupportedError struct {
	// Mode is the mode that was tested.
	Mode Mode

	// Reason describes the failed check.
	Reason string

	// Cause is the transport, status or decoding error, if any.
	Cause error
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("output mode %s unsupported: %s: %v", e.Mode, e.Reason, e.Cause)
	}
	return fmt.Sprintf("output mode %s unsupported: %s", e.Mode, e.Reason)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *UnsupportedError) Unwrap() error {
	return e.Cause
}
