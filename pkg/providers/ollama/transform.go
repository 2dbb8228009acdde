package ollama

import (
	"encoding/json"

	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/providers"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model     string          `json:"model"`
	Messages  []ChatMessage   `json:"messages"`
	Stream    bool            `json:"stream"`
	Format    json.RawMessage `json:"format,omitempty"`
	Options   *Options        `json:"options,omitempty"`
	KeepAlive string          `json:"keep_alive,omitempty"`
}

// ChatMessage is a message in Ollama format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries sampling and runtime options.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
	Grammar     string   `json:"grammar,omitempty"`
}

// ChatResponse is the non-streaming reply of /api/chat.
type ChatResponse struct {
	Model           string      `json:"model"`
	Message         ChatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error,omitempty"`
}

// transformRequest maps a completion request to Ollama's chat format.
// Schema mode sends the schema as "format", grammar mode sets
// options.grammar, plain mode sends format "json".
func transformRequest(req *providers.CompletionRequest, defaultModel string) (*ChatRequest, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	temp := req.Temperature
	out := &ChatRequest{
		Model:     model,
		Messages:  make([]ChatMessage, 0, len(req.Messages)),
		Stream:    false,
		KeepAlive: req.KeepAlive,
		Options: &Options{
			Temperature: &temp,
			NumPredict:  req.MaxTokens,
			NumCtx:      req.ContextWindow,
		},
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	switch req.Constraint.Mode {
	case outputmode.ModeSchema:
		schema, err := json.Marshal(req.Constraint.Schema)
		if err != nil {
			return nil, err
		}
		out.Format = schema
	case outputmode.ModeGrammar:
		out.Options.Grammar = req.Constraint.Grammar
	case outputmode.ModePlainJSON:
		out.Format = json.RawMessage(`"json"`)
	}
	return out, nil
}

// transformResponse normalizes an Ollama reply.
func transformResponse(resp *ChatResponse) *providers.CompletionResponse {
	reason := resp.DoneReason
	if reason == "" && resp.Done {
		reason = providers.FinishReasonStop
	}
	return &providers.CompletionResponse{
		Model:        resp.Model,
		Content:      resp.Message.Content,
		FinishReason: reason,
		Usage: providers.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
}
