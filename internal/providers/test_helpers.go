package providers

import (
	"testing"
	"time"

	"medqc-hq/medqc/pkg/providers"
)

// TestConfig returns a provider configuration with short timeouts.
func TestConfig(name, providerType, baseURL string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             baseURL,
		Model:               "test-model",
		ConnectTimeout:      time.Second,
		ReadTimeout:         2 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestCompletionRequest creates a request with one system and one user message.
func TestCompletionRequest(system, user string) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: system},
			{Role: providers.RoleUser, Content: user},
		},
		MaxTokens: 100,
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
