package gateway

import (
	"errors"
	"time"
)

// ErrEmptyContent is recorded when the backend answered 2xx with no text.
// It is retried like any other transient failure.
var ErrEmptyContent = errors.New("backend returned empty content")

// Failure classifies why a call produced no usable text.
type Failure int

const (
	// FailureNone means Outcome.Text holds the backend's reply.
	FailureNone Failure = iota

	// FailureTransient covers timeouts, connection errors, non-rejection
	// statuses, empty replies and cancellation. Retries were exhausted or
	// the context ended.
	FailureTransient

	// FailureRejected means the backend refused the request (400, 401,
	// 403, 404, 422) or the request could not be built. It is never retried.
	FailureRejected
)

// String returns the failure name used in logs and metrics.
func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureRejected:
		return "rejected"
	default:
		return "transient"
	}
}

// Outcome is the explicit result of one gateway call, including retries.
type Outcome struct {
	// Text is the raw backend reply when Failure is FailureNone.
	Text string

	// Attempts is the number of backend attempts made (at least 1 unless
	// the context had already ended).
	Attempts int

	// BytesSent and BytesReceived sum request and response bodies over
	// the attempts that reached the backend and got an answer.
	BytesSent     int64
	BytesReceived int64

	// Elapsed is the wall time of the whole call.
	Elapsed time.Duration

	// FinishReason is the backend's stop reason for the final reply
	// ("stop", "length").
	FinishReason string

	// Failure classifies the outcome.
	Failure Failure

	// Err is the last error when Failure is not FailureNone.
	Err error
}

// OK reports whether the call produced text.
func (o Outcome) OK() bool {
	return o.Failure == FailureNone
}

// Truncated reports whether the backend stopped at the token limit.
func (o Outcome) Truncated() bool {
	return o.FinishReason == "length"
}
