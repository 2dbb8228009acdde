package providers

import (
	"time"

	"medqc-hq/medqc/pkg/outputmode"
)

// Message represents a single chat message.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`
}

// CompletionRequest is a backend-agnostic, non-streaming chat request.
// Adapters translate it to their wire format.
type CompletionRequest struct {
	// Model is the model identifier. Empty uses the provider's configured model.
	Model string

	// Messages is the conversation, usually one system and one user message.
	Messages []Message

	// Temperature controls randomness. Audits use 0.
	Temperature float64

	// MaxTokens caps the generated tokens (num_predict for Ollama).
	MaxTokens int

	// ContextWindow is the context size hint (num_ctx for Ollama). 0 omits it.
	ContextWindow int

	// KeepAlive asks the backend to keep the model loaded (Ollama only).
	KeepAlive string

	// Constraint is the structured-output constraint for this call.
	Constraint outputmode.Constraint
}

// CompletionResponse is the normalized backend reply.
type CompletionResponse struct {
	// Model is the model that generated the response
	Model string

	// Content is the generated text content
	Content string

	// FinishReason indicates why generation stopped (stop, length)
	FinishReason string

	// Usage contains token consumption information, when reported
	Usage TokenUsage

	// BytesSent is the size of the request body
	BytesSent int

	// BytesReceived is the size of the response body
	BytesReceived int
}

// ProviderHealth tracks the health status of a provider.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last request or health check
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failures
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent to this provider
	TotalRequests int64

	// FailedRequests is the total number of failed requests
	FailedRequests int64
}

// ProviderConfig contains configuration for a single provider instance.
type ProviderConfig struct {
	// Name is the provider identifier used in logs and errors
	Name string

	// Type is the adapter type (ollama, openai)
	Type string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the bearer token (optional for local backends)
	APIKey string

	// Model is the default model identifier
	Model string

	// ConnectTimeout bounds TCP connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout bounds one attempt from request start to the last body byte
	ReadTimeout time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration

	// UnhealthyThreshold is the consecutive failure count that marks the
	// provider unhealthy (default 3)
	UnhealthyThreshold int
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)
