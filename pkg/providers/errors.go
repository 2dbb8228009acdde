package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies a provider failure for retry decisions.
type ErrorKind int

const (
	// KindTransient failures may succeed on retry (5xx, 429, network errors).
	KindTransient ErrorKind = iota

	// KindRejected failures are the backend refusing the request
	// (400, 401, 403, 404, 422). Retrying cannot help.
	KindRejected
)

// String returns the kind name.
func (k ErrorKind) String() string {
	if k == KindRejected {
		return "rejected"
	}
	return "transient"
}

// KindForStatus maps a non-2xx HTTP status to an error kind.
func KindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return KindRejected
	default:
		return KindTransient
	}
}

// ProviderError represents a backend or transport failure.
type ProviderError struct {
	// Provider is the name of the provider that returned the error
	Provider string

	// StatusCode is the HTTP status code (0 for transport errors)
	StatusCode int

	// Kind classifies the failure
	Kind ErrorKind

	// Message is the error message (usually the response body)
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q %s error (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("provider %q %s error: %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q %s error: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents a connect or read timeout of one attempt.
// Timeouts are transient.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred
	Provider string

	// Phase is "connect" or "read"
	Phase string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q %s timeout after %s", e.Provider, e.Phase, e.Timeout)
}

// ParseError represents a malformed response envelope (not malformed model
// output, which is the coercer's concern). Parse errors are transient.
type ParseError struct {
	// Provider is the name of the provider that returned the malformed response
	Provider string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ConfigError represents a provider configuration error.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// IsRejected reports whether err is a backend rejection that must not be retried.
func IsRejected(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindRejected
}

// IsTransient reports whether err may succeed on retry. Context cancellation
// is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == KindTransient
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var pa *ParseError
	return errors.As(err, &pa)
}
