package providers

import "context"

// Provider is the interface implemented by every inference backend adapter.
//
// SendCompletion performs exactly one attempt; retry policy belongs to the
// caller. Errors are classified so the caller can tell transient failures
// from rejections:
//
//	resp, err := provider.SendCompletion(ctx, req)
//	switch {
//	case err == nil:
//	    use(resp.Content)
//	case providers.IsRejected(err):
//	    // do not retry
//	case providers.IsTransient(err):
//	    // retry after backoff
//	}
type Provider interface {
	// SendCompletion sends one non-streaming chat request.
	// The context bounds the whole attempt; cancellation returns ctx.Err().
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// GetName returns the provider's configured name.
	GetName() string

	// GetType returns the adapter type (e.g., "ollama", "openai").
	GetType() string

	// GetConfig returns the provider's configuration.
	GetConfig() ProviderConfig

	// IsHealthy returns the current health status of the provider.
	IsHealthy() bool

	// GetHealth returns detailed health information.
	GetHealth() ProviderHealth

	// Close releases idle connections. The provider must not be used afterwards.
	Close() error
}
