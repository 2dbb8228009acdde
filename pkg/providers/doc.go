// Package providers implements the transport layer for inference backends.
//
// # Overview
//
// A Provider sends one non-streaming chat request and returns the generated
// text. Adapters exist for Ollama's native API (package ollama) and for
// OpenAI-compatible servers (package openai); both embed HTTPProvider, which
// supplies pooled connections, independent connect and read timeouts, and
// health tracking.
//
// # Error Classification
//
// Providers never retry. Every failure is classified so the caller can decide:
//
//   - *ProviderError with KindRejected: HTTP 400, 401, 403, 404, 422
//   - *ProviderError with KindTransient: other non-2xx statuses and network errors
//   - *TimeoutError: connect or read timeout of the attempt (transient)
//   - *ParseError: malformed response envelope (transient)
//   - context.Canceled / context.DeadlineExceeded: the caller's context ended
//
// IsTransient and IsRejected apply these rules through errors.As.
//
// # Structured Output
//
// CompletionRequest.Constraint carries the negotiated output constraint
// (JSON schema, GBNF grammar, or plain JSON). Each adapter maps it to its
// wire format.
package providers
