package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	testproviders "medqc-hq/medqc/internal/providers"
	"medqc-hq/medqc/pkg/gateway"
	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/providers"
	"medqc-hq/medqc/pkg/providers/ollama"
	"medqc-hq/medqc/pkg/rules"
	"medqc-hq/medqc/pkg/scheduler"
	"medqc-hq/medqc/pkg/telemetry/logging"
	"medqc-hq/medqc/pkg/telemetry/metrics"
)

const validReply = `{"viol":[],"assessed":["A","B"]}`

func testCatalog(t *testing.T) *rules.Catalog {
	t.Helper()
	c, err := rules.New([]rules.Spec{
		{ID: "A", Hint: "Is the diagnosis justified?", OrderDomain: []string{"203n"}, WhereDomain: []string{"diagnosis"}},
		{ID: "B", OrderDomain: []string{"1n"}, WhereDomain: []string{"plan"}},
		{ID: "C"},
	})
	if err != nil {
		t.Fatalf("rules.New() error = %v", err)
	}
	return c
}

func testRequest() scheduler.ChunkRequest {
	return scheduler.ChunkRequest{
		Index:   0,
		RuleIDs: []string{"A", "B"},
		Mode:    outputmode.ModeSchema,
		Budget:  scheduler.Budget{MaxViolations: 10, MaxEvidenceChars: 90, MaxOutputTokens: 768},
	}
}

func newGateway(t *testing.T, p providers.Provider, cfg gateway.Config, opts ...gateway.Option) *gateway.Gateway {
	t.Helper()
	opts = append([]gateway.Option{gateway.WithLogger(logging.Nop())}, opts...)
	return gateway.New(p, testCatalog(t), cfg, opts...)
}

func transient() error {
	return &providers.ProviderError{Provider: "fake", StatusCode: 503, Kind: providers.KindTransient, Message: "unavailable"}
}

func TestCall_Success(t *testing.T) {
	p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(testproviders.Step{Content: validReply}))
	g := newGateway(t, p, gateway.Config{Model: "m", ContextWindow: 3072, KeepAlive: "30m"})

	out := g.Call(context.Background(), testRequest(), "Patient admitted.")

	if !out.OK() || out.Text != validReply {
		t.Fatalf("Call() = %+v, want success", out)
	}
	if out.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", out.Attempts)
	}
	if out.BytesSent == 0 || out.BytesReceived != int64(len(validReply)) {
		t.Errorf("bytes = %d/%d", out.BytesSent, out.BytesReceived)
	}

	req := p.Requests()[0]
	if req.MaxTokens != 768 || req.ContextWindow != 3072 || req.KeepAlive != "30m" || req.Model != "m" {
		t.Errorf("request envelope = %+v", req)
	}
	if req.Constraint.Mode != outputmode.ModeSchema || req.Constraint.Schema == nil {
		t.Errorf("constraint = %+v, want schema", req.Constraint)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != providers.RoleUser {
		t.Fatalf("messages = %+v, want one user message", req.Messages)
	}
	prompt := req.Messages[0].Content
	for _, want := range []string{"Assess ONLY: A, B.", gateway.DocumentMarker + "\nPatient admitted."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestCall_Retries(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		steps        []testproviders.Step
		wantFailure  gateway.Failure
		wantAttempts int
		wantErr      error
	}{
		{
			name:         "transient then success",
			maxRetries:   1,
			steps:        []testproviders.Step{{Err: transient()}, {Content: validReply}},
			wantFailure:  gateway.FailureNone,
			wantAttempts: 2,
		},
		{
			name:         "retries exhausted",
			maxRetries:   2,
			steps:        []testproviders.Step{{Err: transient()}},
			wantFailure:  gateway.FailureTransient,
			wantAttempts: 3,
		},
		{
			name:       "timeout is transient",
			maxRetries: 1,
			steps: []testproviders.Step{
				{Err: &providers.TimeoutError{Provider: "fake", Phase: "read", Timeout: time.Second}},
				{Content: validReply},
			},
			wantFailure:  gateway.FailureNone,
			wantAttempts: 2,
		},
		{
			name:         "empty content retried",
			maxRetries:   1,
			steps:        []testproviders.Step{{Content: "  \n"}, {Content: validReply}},
			wantFailure:  gateway.FailureNone,
			wantAttempts: 2,
		},
		{
			name:         "empty content exhausted",
			maxRetries:   1,
			steps:        []testproviders.Step{{Content: ""}},
			wantFailure:  gateway.FailureTransient,
			wantAttempts: 2,
			wantErr:      gateway.ErrEmptyContent,
		},
		{
			name:       "rejection not retried",
			maxRetries: 3,
			steps: []testproviders.Step{{Err: &providers.ProviderError{
				Provider: "fake", StatusCode: 422, Kind: providers.KindRejected, Message: "bad schema",
			}}},
			wantFailure:  gateway.FailureRejected,
			wantAttempts: 1,
		},
		{
			name:         "config error not retried",
			maxRetries:   3,
			steps:        []testproviders.Step{{Err: &providers.ConfigError{Provider: "fake", Field: "constraint", Message: "bad"}}},
			wantFailure:  gateway.FailureRejected,
			wantAttempts: 1,
		},
		{
			name:         "negative retries means one attempt",
			maxRetries:   -1,
			steps:        []testproviders.Step{{Err: transient()}},
			wantFailure:  gateway.FailureTransient,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(tt.steps...))
			g := newGateway(t, p, gateway.Config{MaxRetries: tt.maxRetries, RetryBackoff: time.Millisecond})

			out := g.Call(context.Background(), testRequest(), "doc")

			if out.Failure != tt.wantFailure {
				t.Errorf("Failure = %v, want %v (err %v)", out.Failure, tt.wantFailure, out.Err)
			}
			if out.Attempts != tt.wantAttempts || p.Calls() != tt.wantAttempts {
				t.Errorf("Attempts = %d, calls = %d, want %d", out.Attempts, p.Calls(), tt.wantAttempts)
			}
			if tt.wantErr != nil && !errors.Is(out.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", out.Err, tt.wantErr)
			}
			if tt.wantFailure == gateway.FailureNone && out.Err != nil {
				t.Errorf("Err = %v on success", out.Err)
			}
		})
	}
}

func TestCall_ContextCancelled(t *testing.T) {
	p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(testproviders.Step{Content: validReply}))
	g := newGateway(t, p, gateway.Config{MaxRetries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := g.Call(ctx, testRequest(), "doc")

	if out.Failure != gateway.FailureTransient || !errors.Is(out.Err, context.Canceled) {
		t.Errorf("Call() = %+v, want transient cancellation", out)
	}
	if out.Attempts != 0 || p.Calls() != 0 {
		t.Errorf("no attempt expected, got %d", out.Attempts)
	}
}

func TestCall_DeadlineDuringBackoff(t *testing.T) {
	p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(testproviders.Step{Err: transient()}))
	g := newGateway(t, p, gateway.Config{MaxRetries: 5, RetryBackoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := g.Call(ctx, testRequest(), "doc")

	if time.Since(start) > 5*time.Second {
		t.Fatal("backoff did not stop at the deadline")
	}
	if out.Attempts != 1 || !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("Call() = %+v, want one attempt then deadline", out)
	}
}

func TestCall_SystemPrompt(t *testing.T) {
	p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(testproviders.Step{Content: validReply}))
	g := newGateway(t, p, gateway.Config{SystemPrompt: "You audit inpatient records."})

	g.Call(context.Background(), testRequest(), "doc")

	msgs := p.Requests()[0].Messages
	if len(msgs) != 2 || msgs[0].Role != providers.RoleSystem || msgs[0].Content != "You audit inpatient records." {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestCall_TruncatedReply(t *testing.T) {
	p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(testproviders.Step{Content: `{"viol":[`, FinishReason: "length"}))
	g := newGateway(t, p, gateway.Config{})

	out := g.Call(context.Background(), testRequest(), "doc")
	if !out.OK() || !out.Truncated() {
		t.Errorf("Call() = %+v, want text with length finish", out)
	}
}

func TestCall_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector(nil, nil)
	p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(testproviders.Step{Err: transient()}, testproviders.Step{Content: validReply}))
	g := newGateway(t, p, gateway.Config{MaxRetries: 1}, gateway.WithMetrics(collector))

	g.Call(context.Background(), testRequest(), "doc")

	if n, err := testutil.GatherAndCount(collector.Registry(), "medqc_audit_backend_calls_total"); err != nil || n != 1 {
		t.Errorf("backend_calls_total series = %d, %v", n, err)
	}
	if n, err := testutil.GatherAndCount(collector.Registry(), "medqc_audit_backend_retries_total"); err != nil || n != 1 {
		t.Errorf("backend_retries_total series = %d, %v", n, err)
	}
}

func TestSmoke(t *testing.T) {
	p := testproviders.NewScriptedProvider("fake", testproviders.Sequence(
		testproviders.Step{Content: `{"ok": true}`},
		testproviders.Step{Err: transient()},
	))
	g := newGateway(t, p, gateway.Config{MaxRetries: 3})

	c := outputmode.Constraint{Mode: outputmode.ModeGrammar, Grammar: outputmode.SmokeGrammar}
	content, err := g.Smoke(context.Background(), c)
	if err != nil || content != `{"ok": true}` {
		t.Fatalf("Smoke() = %q, %v", content, err)
	}
	if got := p.Requests()[0].Constraint; got.Grammar != outputmode.SmokeGrammar {
		t.Errorf("smoke constraint = %+v", got)
	}

	if _, err := g.Smoke(context.Background(), c); err == nil {
		t.Error("Smoke() should surface the provider error")
	}
	if p.Calls() != 2 {
		t.Errorf("smoke tests must not retry, calls = %d", p.Calls())
	}
}

func TestSmoke_NegotiatesWhatTheBackendEnforces(t *testing.T) {
	// instructionFollower ignores constraints and echoes any JSON the prompt
	// spells out; otherwise it answers in prose.
	instructionFollower := func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
		prompt := req.Messages[len(req.Messages)-1].Content
		if strings.Contains(prompt, `"ok"`) {
			return testproviders.Reply(`{"ok": true}`, "", req), nil
		}
		return testproviders.Reply("Test received. How can I help?", "", req), nil
	}
	grammarOnly := func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
		if req.Constraint.Mode == outputmode.ModeGrammar && req.Constraint.Grammar != "" {
			return testproviders.Reply(`{"ok":true}`, "", req), nil
		}
		return testproviders.Reply("grammar test acknowledged", "", req), nil
	}
	schemaAware := func(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
		if req.Constraint.Mode == outputmode.ModeSchema && req.Constraint.Schema != nil {
			return testproviders.Reply(`{"ok": false}`, "", req), nil
		}
		return testproviders.Reply("no", "", req), nil
	}

	tests := []struct {
		name    string
		respond testproviders.Responder
		want    outputmode.Mode
		calls   int
	}{
		{"constraint ignored", instructionFollower, outputmode.ModePlainJSON, 2},
		{"grammar enforced", grammarOnly, outputmode.ModeGrammar, 2},
		{"schema enforced", schemaAware, outputmode.ModeSchema, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testproviders.NewScriptedProvider("fake", tt.respond)
			n := outputmode.NewNegotiator(newGateway(t, p, gateway.Config{}), outputmode.ModeUnprobed, 0, logging.Nop())

			if got := n.Mode(context.Background()); got != tt.want {
				t.Errorf("Mode() = %s, want %s", got, tt.want)
			}
			if p.Calls() != tt.calls {
				t.Errorf("smoke calls = %d, want %d", p.Calls(), tt.calls)
			}
			for _, req := range p.Requests() {
				if prompt := req.Messages[len(req.Messages)-1].Content; strings.Contains(prompt, "ok") {
					t.Errorf("smoke prompt %q names the expected answer", prompt)
				}
			}
		})
	}
}

func TestSmoke_ImplementsSmokeTester(t *testing.T) {
	var _ outputmode.SmokeTester = (*gateway.Gateway)(nil)
}

func TestCall_OllamaBackend(t *testing.T) {
	server := testproviders.NewMockServer()
	defer server.Close()
	server.QueueResponses("/api/chat",
		testproviders.MockResponse{StatusCode: http.StatusServiceUnavailable, Body: "loading model"},
		testproviders.MockResponse{Body: testproviders.MockOllamaResponse(validReply, "test-model")},
	)

	p, err := ollama.NewProvider(testproviders.TestConfig("ollama", ollama.ProviderType, server.URL()))
	testproviders.AssertNoError(t, err)
	g := newGateway(t, p, gateway.Config{MaxRetries: 1, RetryBackoff: time.Millisecond, ContextWindow: 3072})

	out := g.Call(context.Background(), testRequest(), "doc")
	if !out.OK() || out.Attempts != 2 {
		t.Fatalf("Call() = %+v, want success on second attempt", out)
	}
	if out.BytesSent == 0 || out.BytesReceived == 0 {
		t.Errorf("bytes = %d/%d", out.BytesSent, out.BytesReceived)
	}

	body := server.Requests()[1].JSON()
	if _, ok := body["format"].(map[string]any); !ok {
		t.Errorf("format = %v, want schema object", body["format"])
	}
	options, _ := body["options"].(map[string]any)
	if options["num_ctx"] != float64(3072) || options["num_predict"] != float64(768) {
		t.Errorf("options = %v", options)
	}
}
