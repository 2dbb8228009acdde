package coverage

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"medqc-hq/medqc/pkg/coerce"
	"medqc-hq/medqc/pkg/gateway"
	"medqc-hq/medqc/pkg/rules"
	"medqc-hq/medqc/pkg/scheduler"
	"medqc-hq/medqc/pkg/telemetry/metrics"
	"medqc-hq/medqc/pkg/telemetry/tracing"
	"medqc-hq/medqc/pkg/verdict"
)

// Evidence markers of verdicts the enforcer synthesizes.
const (
	// NotConfirmedEvidence marks a FAIL forced because inference never
	// confirmed assessing the rule.
	NotConfirmedEvidence = "not confirmed by inference"

	// PassEvidence marks a PASS for a rule inference assessed without
	// reporting a violation.
	PassEvidence = "complies with requirements"
)

// Chunk outcomes reported to metrics.
const (
	OutcomeAccepted  = "accepted"
	OutcomeEscalated = "escalated"
	OutcomeDegraded  = "degraded"
)

// Caller sends one chunk request to the backend.
type Caller interface {
	Call(ctx context.Context, req scheduler.ChunkRequest, document string) gateway.Outcome
}

// Catalog is the part of the rule catalog the enforcer needs.
type Catalog interface {
	Spec(id string) (rules.Spec, bool)
	Admit(v verdict.Verdict) (verdict.Verdict, bool)
}

// Config holds the coverage policy.
type Config struct {
	// MinCoverageFraction is the share of requested ids that must be
	// confirmed for a response to be accepted without escalation.
	MinCoverageFraction float64

	// EscalationShrink scales the output budget of escalation halves.
	EscalationShrink float64
}

// Attempt records one gateway call made for a chunk.
type Attempt struct {
	// RuleIDs are the ids the call asked about.
	RuleIDs []string

	// Outcome is the gateway result.
	Outcome gateway.Outcome

	// Stage is the repair stage that parsed the reply (StageNone when the
	// call failed or nothing parsed).
	Stage coerce.Stage

	// Err is the coercion error when the reply could not be parsed.
	Err error

	// LikelyTruncated is set when an unparseable reply looks cut off.
	LikelyTruncated bool

	// Escalation is true for calls made for escalation halves.
	Escalation bool
}

// Unrepairable reports whether the call returned text no stage could parse.
func (a Attempt) Unrepairable() bool {
	return a.Outcome.OK() && a.Err != nil
}

// Outcome is the closed result for one chunk: exactly one verdict per
// requested id, in request order.
type Outcome struct {
	// Verdicts holds one admitted verdict per requested id.
	Verdicts []verdict.Verdict

	// Confirmed lists ids the backend assessed or reported as violated.
	Confirmed []string

	// Forced lists ids resolved to FAIL with NotConfirmedEvidence.
	Forced []string

	// Escalated is true when the chunk was split and reissued.
	Escalated bool

	// Attempts lists every gateway call in order.
	Attempts []Attempt
}

// Enforcer runs the per-chunk coverage state machine:
// INITIAL → (ESCALATING) → DONE. It is safe for concurrent use; the only
// shared state is the RetryBudget passed to Enforce.
type Enforcer struct {
	caller  Caller
	catalog Catalog
	cfg     Config

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enforcer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Enforcer) {
		e.metrics = c
	}
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Enforcer) {
		e.tracer = t
	}
}

// NewEnforcer creates an enforcer. A fraction outside (0, 1] means 0.5.
func NewEnforcer(caller Caller, catalog Catalog, cfg Config, opts ...Option) *Enforcer {
	if cfg.MinCoverageFraction <= 0 || cfg.MinCoverageFraction > 1 {
		cfg.MinCoverageFraction = 0.5
	}
	e := &Enforcer{
		caller:  caller,
		catalog: catalog,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "coverage")
	return e
}

// Enforce resolves one chunk. The first response is accepted when it
// confirms enough ids; otherwise, if budget yields a token, the chunk is
// halved and both halves are reissued once. Whatever remains unconfirmed
// becomes a forced FAIL. Enforce always returns one verdict per requested id.
func (e *Enforcer) Enforce(ctx context.Context, req scheduler.ChunkRequest, document string, budget *RetryBudget) Outcome {
	ctx, span := e.tracer.Start(ctx, "coverage.chunk")
	defer span.End()
	tracing.SetChunkAttributes(span, req.Index, len(req.RuleIDs), req.Mode.String())

	var out Outcome
	resp, first := e.attempt(ctx, req, document, false)
	out.Attempts = append(out.Attempts, first)
	merged := newResponseSet()
	merged.add(resp)

	outcome := OutcomeAccepted
	if !e.sufficient(merged.confirmedCount(req.RuleIDs), len(req.RuleIDs)) {
		outcome = OutcomeDegraded
		if ctx.Err() == nil && budget.Take() {
			outcome = OutcomeEscalated
			out.Escalated = true
			e.metrics.RecordEscalation()
			e.logger.InfoContext(ctx, "weak coverage, escalating chunk",
				"chunk", req.Index,
				"confirmed", merged.confirmedCount(req.RuleIDs),
				"requested", len(req.RuleIDs),
			)
			out.Attempts = append(out.Attempts, e.escalate(ctx, req, document, merged)...)
		}
	}
	e.metrics.RecordChunk(outcome)

	e.close(req, merged, &out)

	span.SetAttributes(
		attribute.Bool(tracing.AttrEscalated, out.Escalated),
		attribute.Int(tracing.AttrConfirmed, len(out.Confirmed)),
		attribute.Int(tracing.AttrForcedFail, len(out.Forced)),
	)
	if len(out.Forced) > 0 {
		e.logger.WarnContext(ctx, "rules not confirmed by inference",
			"chunk", req.Index,
			"forced", out.Forced,
		)
	}
	return out
}

// Close resolves req without calling the backend: every id becomes a
// forced FAIL. It is used when inference is skipped.
func (e *Enforcer) Close(req scheduler.ChunkRequest) Outcome {
	var out Outcome
	e.close(req, newResponseSet(), &out)
	e.metrics.RecordChunk(OutcomeDegraded)
	return out
}

// escalate halves req and reissues both halves. A single-id chunk is
// reissued as is.
func (e *Enforcer) escalate(ctx context.Context, req scheduler.ChunkRequest, document string, merged *responseSet) []Attempt {
	ctx, span := e.tracer.Start(ctx, "coverage.escalate")
	defer span.End()

	halves := []scheduler.ChunkRequest{req}
	if left, right, ok := scheduler.Halve(req, e.cfg.EscalationShrink); ok {
		halves = []scheduler.ChunkRequest{left, right}
	}

	attempts := make([]Attempt, 0, len(halves))
	for _, half := range halves {
		if ctx.Err() != nil {
			break
		}
		resp, a := e.attempt(ctx, half, document, true)
		merged.add(resp)
		attempts = append(attempts, a)
	}
	return attempts
}

// attempt makes one gateway call and coerces its reply. Failures of either
// step yield an empty response.
func (e *Enforcer) attempt(ctx context.Context, req scheduler.ChunkRequest, document string, escalation bool) (coerce.ChunkResponse, Attempt) {
	a := Attempt{RuleIDs: req.RuleIDs, Escalation: escalation}
	a.Outcome = e.caller.Call(ctx, req, document)
	if !a.Outcome.OK() {
		return coerce.ChunkResponse{}, a
	}

	resp, stage, err := coerce.Coerce(a.Outcome.Text, req.RuleIDs)
	a.Stage = stage
	if err != nil {
		a.Err = err
		a.LikelyTruncated = a.Outcome.Truncated() || coerce.LikelyTruncated(a.Outcome.Text)
		e.metrics.RecordUnrepairable()
		e.logger.WarnContext(ctx, "unrepairable backend reply",
			"chunk", req.Index,
			"likely_truncated", a.LikelyTruncated,
			"error", err,
		)
		return coerce.ChunkResponse{}, a
	}
	e.metrics.RecordRepairStage(stage.String())
	tracing.AddEvent(trace.SpanFromContext(ctx), "response.coerced",
		attribute.String(tracing.AttrRepairStage, stage.String()),
		attribute.Int("dropped", resp.Dropped),
	)
	if resp.Dropped > 0 {
		e.logger.DebugContext(ctx, "dropped entries outside the chunk",
			"chunk", req.Index,
			"dropped", resp.Dropped,
		)
	}
	return resp, a
}

func (e *Enforcer) sufficient(confirmed, requested int) bool {
	if requested == 0 {
		return true
	}
	return float64(confirmed) >= e.cfg.MinCoverageFraction*float64(requested)
}

// close turns the merged responses into one verdict per requested id.
func (e *Enforcer) close(req scheduler.ChunkRequest, merged *responseSet, out *Outcome) {
	out.Verdicts = make([]verdict.Verdict, 0, len(req.RuleIDs))
	for _, id := range req.RuleIDs {
		var v verdict.Verdict
		switch {
		case merged.violations[id] != nil:
			v = merged.violations[id].Verdict()
			out.Confirmed = append(out.Confirmed, id)
		case merged.assessed[id]:
			v = e.synthetic(id, verdict.StatusPass, PassEvidence)
			out.Confirmed = append(out.Confirmed, id)
		default:
			v = e.synthetic(id, verdict.StatusFail, NotConfirmedEvidence)
			out.Forced = append(out.Forced, id)
		}
		if admitted, ok := e.catalog.Admit(v); ok {
			v = admitted
		}
		out.Verdicts = append(out.Verdicts, v)
	}
}

// synthetic builds a verdict with the rule's defaults: its default severity
// and the first declared order and where values.
func (e *Enforcer) synthetic(id string, status verdict.Status, evidence string) verdict.Verdict {
	v := verdict.Verdict{RuleID: id, Status: status, Evidence: evidence, Source: verdict.SourceLLM}
	if spec, ok := e.catalog.Spec(id); ok {
		v.Severity = spec.DefaultSeverity
		if len(spec.OrderDomain) > 0 {
			v.Order = spec.OrderDomain[0]
		}
		if len(spec.WhereDomain) > 0 {
			v.Where = spec.WhereDomain[0]
		}
	}
	return v
}

// responseSet is the union of the responses received for one chunk. The
// first violation reported for an id wins.
type responseSet struct {
	violations map[string]*coerce.PartialVerdict
	assessed   map[string]bool
}

func newResponseSet() *responseSet {
	return &responseSet{
		violations: make(map[string]*coerce.PartialVerdict),
		assessed:   make(map[string]bool),
	}
}

func (s *responseSet) add(resp coerce.ChunkResponse) {
	for i := range resp.Violations {
		pv := resp.Violations[i]
		if _, seen := s.violations[pv.R]; !seen {
			s.violations[pv.R] = &pv
		}
	}
	for _, id := range resp.Assessed {
		s.assessed[id] = true
	}
}

func (s *responseSet) confirmedCount(ids []string) int {
	n := 0
	for _, id := range ids {
		if s.violations[id] != nil || s.assessed[id] {
			n++
		}
	}
	return n
}
