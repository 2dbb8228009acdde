package openai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"medqc-hq/medqc/pkg/providers"
)

// ProviderType is the config type name of this adapter.
const ProviderType = "openai"

// Provider talks to an OpenAI-compatible server.
type Provider struct {
	*providers.HTTPProvider
	baseURL string
}

// NewProvider creates an OpenAI-compatible provider. BaseURL includes the
// API version prefix (for example https://api.openai.com/v1). The API key
// is optional for local servers.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = ProviderType
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "base_url", Message: "base URL is required"}
	}
	if config.Model == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "model", Message: "model is required"}
	}
	config.Type = ProviderType

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
	}

	slog.Info("openai-compatible provider initialized",
		"provider", config.Name,
		"base_url", p.baseURL,
		"model", config.Model,
	)
	return p, nil
}

// SendCompletion sends one non-streaming chat completion request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	body := transformRequest(req, p.GetConfig().Model)

	var out OpenAIResponse
	ex, err := p.DoJSON(ctx, http.MethodPost, p.baseURL+"/chat/completions", body, &out, p.headers())
	if err != nil {
		return nil, err
	}

	resp, err := transformResponse(&out)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.GetName(), Cause: err}
	}
	resp.BytesSent = ex.BytesSent
	resp.BytesReceived = ex.BytesReceived
	return resp, nil
}

// HealthCheck lists models.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, _, err := p.Do(ctx, http.MethodGet, p.baseURL+"/models", nil, p.headers())
	return err
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{}
	if key := p.GetConfig().APIKey; key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}
