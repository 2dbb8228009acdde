// Package providerfactory builds inference providers from configuration.
package providerfactory

import (
	"fmt"
	"log/slog"

	"medqc-hq/medqc/pkg/config"
	"medqc-hq/medqc/pkg/providers"
	"medqc-hq/medqc/pkg/providers/ollama"
	"medqc-hq/medqc/pkg/providers/openai"
)

// NewProvider creates a new provider instance based on the configuration.
//
// Supported provider types:
//   - "ollama": native Ollama /api/chat
//   - "openai": OpenAI-compatible /chat/completions (OpenAI, vLLM, llama.cpp, LM Studio)
//
// The provider type is determined from the config.Type field. If not specified,
// it is inferred from the provider name.
func NewProvider(cfg providers.ProviderConfig) (providers.Provider, error) {
	providerType := cfg.Type
	if providerType == "" {
		providerType = inferProviderType(cfg.Name)
		cfg.Type = providerType
	}

	slog.Debug("creating provider",
		"name", cfg.Name,
		"type", providerType,
		"base_url", cfg.BaseURL,
	)

	var (
		provider providers.Provider
		err      error
	)

	switch providerType {
	case ollama.ProviderType:
		provider, err = ollama.NewProvider(cfg)
	case openai.ProviderType:
		provider, err = openai.NewProvider(cfg)
	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type: %q (supported: ollama, openai)", providerType),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Name, err)
	}

	return provider, nil
}

// FromConfig creates the provider described by the backend section.
func FromConfig(b config.BackendConfig) (providers.Provider, error) {
	return NewProvider(ProviderConfig(b))
}

// ProviderConfig maps the backend section onto the provider-level config.
func ProviderConfig(b config.BackendConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                b.Name,
		Type:                b.Type,
		BaseURL:             b.BaseURL,
		APIKey:              b.APIKey,
		Model:               b.Model,
		ConnectTimeout:      b.ConnectTimeout,
		ReadTimeout:         b.ReadTimeout,
		MaxIdleConns:        b.MaxIdleConns,
		MaxIdleConnsPerHost: b.MaxIdleConnsPerHost,
		IdleConnTimeout:     b.IdleConnTimeout,
	}
}

// inferProviderType infers the provider type from the provider name.
func inferProviderType(name string) string {
	switch name {
	case "ollama", "":
		return ollama.ProviderType
	default:
		return openai.ProviderType
	}
}
