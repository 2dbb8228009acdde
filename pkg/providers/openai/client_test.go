package openai

import (
	"context"
	"net/http"
	"testing"

	mock "medqc-hq/medqc/internal/providers"
	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/providers"
)

func TestSendCompletion_ResponseFormat(t *testing.T) {
	schema := outputmode.Contract(outputmode.ModeSchema, []string{"A"}, nil, nil, outputmode.Limits{})

	tests := []struct {
		name       string
		constraint outputmode.Constraint
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "schema",
			constraint: schema,
			check: func(t *testing.T, body map[string]any) {
				rf := body["response_format"].(map[string]any)
				if rf["type"] != "json_schema" {
					t.Fatalf("response_format.type = %v", rf["type"])
				}
				js := rf["json_schema"].(map[string]any)
				if js["name"] != outputmode.CompactSchemaName || js["strict"] != true {
					t.Errorf("json_schema = %v", js)
				}
				if _, ok := js["schema"].(map[string]any); !ok {
					t.Errorf("schema missing: %v", js)
				}
			},
		},
		{
			name:       "grammar",
			constraint: outputmode.Constraint{Mode: outputmode.ModeGrammar, Grammar: "root ::= \"{}\""},
			check: func(t *testing.T, body map[string]any) {
				if body["grammar"] != "root ::= \"{}\"" {
					t.Errorf("grammar = %v", body["grammar"])
				}
				if _, ok := body["response_format"]; ok {
					t.Error("grammar mode should not send response_format")
				}
			},
		},
		{
			name:       "plain json",
			constraint: outputmode.Constraint{Mode: outputmode.ModePlainJSON},
			check: func(t *testing.T, body map[string]any) {
				rf := body["response_format"].(map[string]any)
				if rf["type"] != "json_object" {
					t.Errorf("response_format = %v", rf)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mock.NewMockServer()
			defer server.Close()
			server.SetResponse("/v1/chat/completions", mock.MockResponse{
				StatusCode: http.StatusOK,
				Body:       mock.MockOpenAIResponse(`{"ok":true}`, "test-model"),
			})

			cfg := mock.TestConfig("compat", ProviderType, server.URL()+"/v1")
			cfg.APIKey = "sk-test"
			p, err := NewProvider(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()

			req := mock.TestCompletionRequest("sys", "user")
			req.Constraint = tt.constraint
			resp, err := p.SendCompletion(context.Background(), req)
			if err != nil {
				t.Fatalf("SendCompletion() error = %v", err)
			}
			if resp.Content != `{"ok":true}` || resp.FinishReason != providers.FinishReasonStop {
				t.Errorf("resp = %+v", resp)
			}

			rec := server.Requests()[0]
			if got := rec.Headers.Get("Authorization"); got != "Bearer sk-test" {
				t.Errorf("Authorization = %q", got)
			}
			body := rec.JSON()
			if body["model"] != "test-model" || body["max_tokens"] != float64(100) || body["stream"] != false {
				t.Errorf("unexpected envelope: %v", body)
			}
			tt.check(t, body)
		})
	}
}

func TestSendCompletion_NoChoices(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/chat/completions", mock.MockResponse{StatusCode: http.StatusOK, Body: `{"choices":[]}`})

	p, err := NewProvider(mock.TestConfig("compat", ProviderType, server.URL()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.SendCompletion(context.Background(), mock.TestCompletionRequest("s", "u"))
	if !providers.IsTransient(err) {
		t.Errorf("empty choices should be a transient parse error, got %v", err)
	}
}

func TestSendCompletion_Unauthorized(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()
	server.SetResponse("/chat/completions", mock.MockResponse{StatusCode: http.StatusUnauthorized, Body: "bad key"})

	p, _ := NewProvider(mock.TestConfig("compat", ProviderType, server.URL()))
	_, err := p.SendCompletion(context.Background(), mock.TestCompletionRequest("s", "u"))
	if !providers.IsRejected(err) {
		t.Errorf("401 should be rejected, got %v", err)
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := map[string]string{
		"stop":       providers.FinishReasonStop,
		"length":     providers.FinishReasonLength,
		"max_tokens": providers.FinishReasonLength,
		"eos":        providers.FinishReasonStop,
		"":           "",
	}
	for in, want := range tests {
		if got := normalizeFinishReason(in); got != want {
			t.Errorf("normalizeFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
