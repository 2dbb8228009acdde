package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"medqc-hq/medqc/pkg/config"
	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/providers"
	"medqc-hq/medqc/pkg/scheduler"
	"medqc-hq/medqc/pkg/telemetry/metrics"
	"medqc-hq/medqc/pkg/telemetry/tracing"
)

// smokeMaxTokens bounds smoke-test replies; {"ok": true} needs a handful.
const smokeMaxTokens = 32

// smokePrompt is the user message of a smoke test. It never names the
// expected answer, so only a backend that applies the constraint replies
// with {"ok": ...}.
func smokePrompt(m outputmode.Mode) string {
	return m.String() + " test"
}

// Config holds the call envelope settings.
type Config struct {
	// Model overrides the provider's default model when set.
	Model string

	// MaxRetries is the number of extra attempts after a transient failure.
	// Negative values are treated as 0.
	MaxRetries int

	// RetryBackoff is the fixed wait between attempts.
	RetryBackoff time.Duration

	// Temperature is sent with every call.
	Temperature float64

	// ContextWindow is the num_ctx hint (0 omits it).
	ContextWindow int

	// KeepAlive is the model keep-alive hint (Ollama only).
	KeepAlive string

	// SystemPrompt, when set, is sent as a system message ahead of the
	// chunk prompt.
	SystemPrompt string
}

// ConfigFrom maps the backend and audit sections of the file configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Model:         cfg.Backend.Model,
		MaxRetries:    cfg.Backend.MaxRetries,
		RetryBackoff:  cfg.Backend.RetryBackoff,
		Temperature:   cfg.Backend.Temperature,
		ContextWindow: cfg.Backend.ContextWindow,
		KeepAlive:     cfg.Backend.KeepAlive,
		SystemPrompt:  cfg.Audit.SystemPrompt,
	}
}

// Gateway is safe for concurrent use; it holds no per-call state.
type Gateway struct {
	provider providers.Provider
	catalog  RuleLookup
	cfg      Config

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Gateway) {
		g.metrics = c
	}
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = t
	}
}

// New creates a gateway over provider. catalog supplies rule hints and the
// allowed order and where values.
func New(provider providers.Provider, catalog RuleLookup, cfg Config, opts ...Option) *Gateway {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	g := &Gateway{
		provider: provider,
		catalog:  catalog,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gateway", "backend", provider.GetName())
	return g
}

// Call sends one chunk request and returns its outcome. Transient failures
// are retried up to MaxRetries times with a fixed backoff; rejections are
// not retried; cancellation of ctx stops at once.
func (g *Gateway) Call(ctx context.Context, req scheduler.ChunkRequest, document string) Outcome {
	ctx, span := g.tracer.Start(ctx, "gateway.call")
	defer span.End()
	tracing.SetChunkAttributes(span, req.Index, len(req.RuleIDs), req.Mode.String())
	tracing.SetBackendAttributes(span, g.provider.GetName(), g.cfg.Model)

	orders, wheres := Domains(g.catalog, req)
	creq := &providers.CompletionRequest{
		Model:         g.cfg.Model,
		Messages:      g.messages(BuildPrompt("", g.catalog, req, document)),
		Temperature:   g.cfg.Temperature,
		MaxTokens:     req.Budget.MaxOutputTokens,
		ContextWindow: g.cfg.ContextWindow,
		KeepAlive:     g.cfg.KeepAlive,
		Constraint:    outputmode.Contract(req.Mode, req.RuleIDs, orders, wheres, req.Budget.Limits()),
	}

	out := g.do(ctx, creq, req.Index)

	tracing.SetCallAttributes(span, out.Attempts, out.Failure.String(), out.BytesSent, out.BytesReceived)
	if out.Failure != FailureNone {
		tracing.SetError(span, out.Err)
	}
	g.metrics.RecordCall(g.provider.GetName(), out.Failure.String(), out.Attempts, out.Elapsed, out.BytesSent, out.BytesReceived)
	return out
}

// Smoke sends one short request under c without retries and returns the raw
// content. It implements outputmode.SmokeTester.
func (g *Gateway) Smoke(ctx context.Context, c outputmode.Constraint) (string, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.smoke")
	defer span.End()
	tracing.SetBackendAttributes(span, g.provider.GetName(), g.cfg.Model)

	resp, err := g.provider.SendCompletion(ctx, &providers.CompletionRequest{
		Model:         g.cfg.Model,
		Messages:      []providers.Message{{Role: providers.RoleUser, Content: smokePrompt(c.Mode)}},
		MaxTokens:     smokeMaxTokens,
		ContextWindow: g.cfg.ContextWindow,
		KeepAlive:     g.cfg.KeepAlive,
		Constraint:    c,
	})
	if err != nil {
		tracing.SetError(span, err)
		return "", err
	}
	return resp.Content, nil
}

func (g *Gateway) messages(prompt string) []providers.Message {
	var msgs []providers.Message
	if strings.TrimSpace(g.cfg.SystemPrompt) != "" {
		msgs = append(msgs, providers.Message{Role: providers.RoleSystem, Content: g.cfg.SystemPrompt})
	}
	return append(msgs, providers.Message{Role: providers.RoleUser, Content: prompt})
}

func (g *Gateway) do(ctx context.Context, creq *providers.CompletionRequest, chunk int) Outcome {
	start := time.Now()
	out := Outcome{Failure: FailureTransient}
	maxAttempts := 1 + g.cfg.MaxRetries

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			g.logger.DebugContext(ctx, "retrying chunk request",
				"chunk", chunk,
				"attempt", attempt,
				"max_retries", g.cfg.MaxRetries,
				"backoff", g.cfg.RetryBackoff,
			)
			if err := sleep(ctx, g.cfg.RetryBackoff); err != nil {
				out.Err = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			out.Err = err
			break
		}

		out.Attempts = attempt
		resp, err := g.provider.SendCompletion(ctx, creq)
		if err == nil {
			out.BytesSent += int64(resp.BytesSent)
			out.BytesReceived += int64(resp.BytesReceived)
			out.FinishReason = resp.FinishReason
			if strings.TrimSpace(resp.Content) != "" {
				out.Text = resp.Content
				out.Failure = FailureNone
				out.Err = nil
				break
			}
			err = ErrEmptyContent
		}
		out.Err = err

		if ctx.Err() != nil {
			break
		}
		if !retryable(err) {
			out.Failure = FailureRejected
			g.logger.WarnContext(ctx, "chunk request rejected",
				"chunk", chunk,
				"error", err,
			)
			break
		}
		g.logger.WarnContext(ctx, "chunk request failed",
			"chunk", chunk,
			"attempt", attempt,
			"error", err,
		)
	}

	out.Elapsed = time.Since(start)
	return out
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return errors.Is(err, ErrEmptyContent) || providers.IsTransient(err)
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
