package openai

import (
	"fmt"

	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/providers"
)

// OpenAI API request/response types

// OpenAIRequest represents an OpenAI chat completion request.
type OpenAIRequest struct {
	Model          string          `json:"model"`
	Messages       []OpenAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream"`
	N              int             `json:"n,omitempty"`
	ResponseFormat map[string]any  `json:"response_format,omitempty"`
	Grammar        string          `json:"grammar,omitempty"`
}

// OpenAIMessage represents a message in OpenAI format.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIResponse represents an OpenAI chat completion response.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

// OpenAIChoice represents a completion choice in OpenAI format.
type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// OpenAIUsage represents token usage in OpenAI format.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// transformRequest transforms a provider-agnostic request to OpenAI format.
func transformRequest(req *providers.CompletionRequest, defaultModel string) *OpenAIRequest {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	out := &OpenAIRequest{
		Model:       model,
		Messages:    make([]OpenAIMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
	}
	for i, msg := range req.Messages {
		out.Messages[i] = OpenAIMessage{Role: msg.Role, Content: msg.Content}
	}

	switch req.Constraint.Mode {
	case outputmode.ModeSchema:
		name := req.Constraint.SchemaName
		if name == "" {
			name = "response"
		}
		out.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"strict": true,
				"schema": req.Constraint.Schema,
			},
		}
	case outputmode.ModeGrammar:
		out.Grammar = req.Constraint.Grammar
	case outputmode.ModePlainJSON:
		out.ResponseFormat = map[string]any{"type": "json_object"}
	}
	return out
}

// transformResponse transforms an OpenAI response to provider-agnostic format.
func transformResponse(resp *OpenAIResponse) (*providers.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	// Use the first choice (we always request N=1)
	choice := resp.Choices[0]

	return &providers.CompletionResponse{
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: normalizeFinishReason(choice.FinishReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// normalizeFinishReason maps server-specific reasons onto stop/length.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "length", "max_tokens":
		return providers.FinishReasonLength
	case "":
		return ""
	default:
		return providers.FinishReasonStop
	}
}
