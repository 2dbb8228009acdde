/*
Package gateway is the only component that talks to the inference backend
during an audit.

# Call envelope

Call renders the chunk prompt, attaches the structured-output constraint for
the negotiated mode, and sends it through a providers.Provider:

	out := gw.Call(ctx, chunk, condensed)
	switch out.Failure {
	case gateway.FailureNone:
	    resp, stage, err := coerce.Coerce(out.Text, requested)
	case gateway.FailureRejected:
	    // the backend refused the request; retrying cannot help
	case gateway.FailureTransient:
	    // retries exhausted or the audit deadline passed
	}

Each attempt is bounded by the provider's read timeout. Transient failures
(timeouts, connection errors, statuses other than 400/401/403/404/422, and
empty replies) are retried up to backend.max_retries times with a fixed
backend.retry_backoff. Cancellation of the context stops the call at once.
Call never panics and never returns an error value: every failure is an
Outcome.

# Prompt

The user message carries the instruction, the compact output shape, the
rule ids with their hints, the allowed order and where values, the limits,
and the document after a "=== DOCUMENT ===" line.

# Smoke tests

Gateway implements outputmode.SmokeTester, so the negotiator probes the
backend through the same provider and model as the audit itself.
*/
package gateway
