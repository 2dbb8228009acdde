package providers

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"medqc-hq/medqc/pkg/providers"
)

// Responder produces the reply to one completion request.
type Responder func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error)

// Step is one scripted reply: Err when set, otherwise Content.
type Step struct {
	Content      string
	FinishReason string
	Err          error
}

// Sequence returns a responder that serves steps in order; the last one repeats.
func Sequence(steps ...Step) Responder {
	var mu sync.Mutex
	return func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
		mu.Lock()
		s := steps[0]
		if len(steps) > 1 {
			steps = steps[1:]
		}
		mu.Unlock()

		if s.Err != nil {
			return nil, s.Err
		}
		return Reply(s.Content, s.FinishReason, req), nil
	}
}

var assessRE = regexp.MustCompile(`Assess ONLY: ([^.]*)\.`)

// ByRules returns a responder that answers chunk prompts by their rule ids,
// joined with ",". Prompts without a rule list (smoke tests) get smoke, and
// unknown rule lists get fallback.
func ByRules(replies map[string]string, smoke, fallback string) Responder {
	return func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
		var prompt string
		if n := len(req.Messages); n > 0 {
			prompt = req.Messages[n-1].Content
		}
		m := assessRE.FindStringSubmatch(prompt)
		if m == nil {
			return Reply(smoke, "", req), nil
		}
		key := strings.ReplaceAll(m[1], ", ", ",")
		if content, ok := replies[key]; ok {
			return Reply(content, "", req), nil
		}
		return Reply(fallback, "", req), nil
	}
}

// Reply builds a response whose byte counts reflect the request and content.
func Reply(content, finishReason string, req *providers.CompletionRequest) *providers.CompletionResponse {
	if finishReason == "" {
		finishReason = providers.FinishReasonStop
	}
	sent := 0
	for _, m := range req.Messages {
		sent += len(m.Content)
	}
	return &providers.CompletionResponse{
		Content:       content,
		FinishReason:  finishReason,
		BytesSent:     sent,
		BytesReceived: len(content),
	}
}

// ScriptedProvider is an in-process providers.Provider driven by a Responder.
// It records every request and honours context cancellation.
type ScriptedProvider struct {
	name    string
	respond Responder

	mu       sync.Mutex
	requests []*providers.CompletionRequest
}

// NewScriptedProvider creates a scripted provider.
func NewScriptedProvider(name string, respond Responder) *ScriptedProvider {
	return &ScriptedProvider{name: name, respond: respond}
}

// SendCompletion records req and returns the responder's reply.
func (p *ScriptedProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.respond(ctx, req)
}

// Requests returns a copy of the recorded requests.
func (p *ScriptedProvider) Requests() []*providers.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*providers.CompletionRequest(nil), p.requests...)
}

// Calls returns the number of recorded requests.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// HealthCheck always succeeds.
func (p *ScriptedProvider) HealthCheck(ctx context.Context) error { return nil }

// GetName returns the provider name.
func (p *ScriptedProvider) GetName() string { return p.name }

// GetType returns "scripted".
func (p *ScriptedProvider) GetType() string { return "scripted" }

// GetConfig returns a config carrying only the name.
func (p *ScriptedProvider) GetConfig() providers.ProviderConfig {
	return providers.ProviderConfig{Name: p.name, Type: "scripted"}
}

// IsHealthy always returns true.
func (p *ScriptedProvider) IsHealthy() bool { return true }

// GetHealth returns a healthy status.
func (p *ScriptedProvider) GetHealth() providers.ProviderHealth {
	return providers.ProviderHealth{IsHealthy: true}
}

// Close is a no-op.
func (p *ScriptedProvider) Close() error { return nil }
