// Package ollama implements the adapter for Ollama's native /api/chat endpoint.
package ollama

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"medqc-hq/medqc/pkg/providers"
)

// ProviderType is the config type name of this adapter.
const ProviderType = "ollama"

// Provider talks to an Ollama server.
type Provider struct {
	*providers.HTTPProvider
	chatURL string
}

// NewProvider creates an Ollama provider. BaseURL is the server root
// (for example http://localhost:11434).
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

	base := strings.TrimRight(config.BaseURL, "/")
	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		chatURL:      base + "/api/chat",
	}

	slog.Info("ollama provider initialized",
		"provider", config.Name,
		"base_url", base,
		"model", config.Model,
	)
	return p, nil
}

// SendCompletion sends one non-streaming chat request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	body, err := transformRequest(req, p.GetConfig().Model)
	if err != nil {
		return nil, &providers.ConfigError{Provider: p.GetName(), Field: "constraint", Message: err.Error()}
	}

	var out ChatResponse
	ex, err := p.DoJSON(ctx, http.MethodPost, p.chatURL, body, &out, p.headers())
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &providers.ProviderError{
			Provider:   p.GetName(),
			StatusCode: ex.StatusCode,
			Kind:       providers.KindTransient,
			Message:    out.Error,
		}
	}

	resp := transformResponse(&out)
	resp.BytesSent = ex.BytesSent
	resp.BytesReceived = ex.BytesReceived
	return resp, nil
}

// HealthCheck lists local models, which needs no model load.
func (p *Provider) HealthCheck(ctx context.Context) error {
	base := strings.TrimSuffix(p.chatURL, "/api/chat")
	_, _, err := p.Do(ctx, http.MethodGet, base+"/api/tags", nil, p.headers())
	return err
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{}
	if key := p.GetConfig().APIKey; key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}
