package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"medqc-hq/medqc/pkg/config"
	"medqc-hq/medqc/pkg/coverage"
	"medqc-hq/medqc/pkg/document"
	"medqc-hq/medqc/pkg/gateway"
	"medqc-hq/medqc/pkg/outputmode"
	"medqc-hq/medqc/pkg/rules"
	"medqc-hq/medqc/pkg/scheduler"
	"medqc-hq/medqc/pkg/telemetry/logging"
	"medqc-hq/medqc/pkg/telemetry/metrics"
	"medqc-hq/medqc/pkg/telemetry/tracing"
	"medqc-hq/medqc/pkg/verdict"
)

// ModeSource yields the negotiated structured-output mode.
// *outputmode.Negotiator implements it.
type ModeSource interface {
	Mode(ctx context.Context) outputmode.Mode
}

// Orchestrator runs audits. The catalog and the negotiated mode are shared
// read-only between audits, so one Orchestrator serves concurrent calls.
type Orchestrator struct {
	cfg      config.AuditConfig
	catalog  *rules.Catalog
	modes    ModeSource
	enforcer *coverage.Enforcer
	document document.Provider

	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	progress ProgressFunc
}

// ProgressFunc is told how many chunks of an audit are resolved. It may be
// called from several goroutines at once.
type ProgressFunc func(done, total int)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithProgress sets a callback invoked after each chunk is resolved.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithDocumentProvider replaces the provider built from cfg.Document.
func WithDocumentProvider(p document.Provider) Option {
	return func(o *Orchestrator) {
		o.document = p
	}
}

// New creates an orchestrator. caller is normally a *gateway.Gateway and
// modes a *outputmode.Negotiator wrapping the same gateway.
func New(cfg *config.Config, catalog *rules.Catalog, caller coverage.Caller, modes ModeSource, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("audit: config is required")
	}
	if catalog == nil || catalog.Len() == 0 {
		return nil, rules.ErrEmptyCatalog
	}

	o := &Orchestrator{
		cfg:     cfg.Audit,
		catalog: catalog,
		modes:   modes,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.document == nil {
		p, err := document.New(cfg.Document, cfg.Backend.ContextWindow)
		if err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
		o.document = p
	}
	o.logger = o.logger.With("component", "audit")
	o.enforcer = coverage.NewEnforcer(caller, catalog, coverage.Config{
		MinCoverageFraction: cfg.Audit.MinCoverageFraction,
		EscalationShrink:    cfg.Audit.EscalationShrink,
	},
		coverage.WithLogger(o.logger),
		coverage.WithMetrics(o.metrics),
		coverage.WithTracer(o.tracer),
	)
	return o, nil
}

// Audit checks one document against the whole catalog. The only errors are
// invalid input, failures of the deterministic checker or the document
// provider, and coverage gaps. Backend problems never fail an audit; they
// turn into FAIL verdicts and show up in the diagnostics.
func (o *Orchestrator) Audit(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyDocument
	}

	start := time.Now()
	auditID := uuid.NewString()

	ctx, span := o.tracer.Start(ctx, "audit")
	defer span.End()
	tracing.SetAuditAttributes(span, auditID, req.DocName, o.catalog.Len())

	ctx = logging.WithAuditID(ctx, auditID)
	if traceID := tracing.TraceID(ctx); traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	o.logger.InfoContext(ctx, "audit started",
		"doc_name", req.DocName,
		"rules", o.catalog.Len(),
		"skip_inference", o.cfg.SkipInference,
	)

	acc := verdict.NewAccumulator()
	diag := &tally{limit: o.cfg.RawSamples, sampleChars: o.cfg.RawSampleChars}

	if req.Checker != nil {
		res, err := req.Checker.Check(ctx, req.Text)
		if err != nil {
			tracing.SetError(span, err)
			return nil, fmt.Errorf("deterministic checks failed: %w", err)
		}
		seeded := o.catalog.AdmitAll(res.Verdicts())
		acc.Fold(seeded)
		diag.d.Seeded = len(seeded)
	}

	budget := scheduler.Budget{
		MaxViolations:    o.cfg.MaxViolations,
		MaxEvidenceChars: o.cfg.EvidenceMaxChars,
		MaxOutputTokens:  o.cfg.MaxOutputTokens,
	}
	chunks, err := scheduler.Split(o.catalog, o.cfg.ChunkSize, budget)
	if err != nil {
		tracing.SetError(span, err)
		return nil, fmt.Errorf("audit: %w", err)
	}
	diag.d.Chunks = len(chunks)

	if o.cfg.SkipInference {
		diag.d.SkippedInference = true
		for i, ch := range chunks {
			ch.RuleIDs = unresolved(acc, ch.RuleIDs)
			if len(ch.RuleIDs) > 0 {
				out := o.enforcer.Close(ch)
				acc.Fold(out.Verdicts)
				diag.add(out)
			}
			o.report(i+1, len(chunks))
		}
	} else {
		mode := o.negotiate(ctx)
		diag.d.Mode = mode

		condensed, err := o.document.Context(ctx, req.Text)
		if err != nil {
			tracing.SetError(span, err)
			return nil, fmt.Errorf("failed to prepare document context: %w", err)
		}
		o.logger.DebugContext(ctx, "document prepared",
			"chars", len([]rune(req.Text)),
			"condensed_chars", len([]rune(condensed)),
			"chunks", len(chunks),
		)

		retries := coverage.NewRetryBudget(o.cfg.RetryBudget)
		o.dispatch(ctx, chunks, mode, condensed, retries, acc, diag)
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		diag.d.DeadlineExceeded = true
	case errors.Is(ctx.Err(), context.Canceled):
		diag.d.Cancelled = true
	}

	var missing []string
	for _, id := range o.catalog.IDs() {
		if !acc.Has(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		gapErr := &CoverageGapError{AuditID: auditID, Missing: missing}
		tracing.SetError(span, gapErr)
		o.logger.ErrorContext(ctx, "coverage gap", "missing", missing)
		return nil, gapErr
	}

	result := &Result{
		AuditID:       auditID,
		DocName:       req.DocName,
		VerdictByRule: acc.Snapshot(),
		Diagnostics:   diag.d,
	}
	result.Diagnostics.Elapsed = time.Since(start)
	result.Diagnostics.ElapsedMS = result.Diagnostics.Elapsed.Milliseconds()

	modeLabel := result.Diagnostics.Mode.String()
	if result.Diagnostics.SkippedInference {
		modeLabel = "none"
	}
	o.metrics.RecordAudit(modeLabel, result.Diagnostics.Elapsed, result.Diagnostics.ForcedFail)
	span.SetAttributes(
		attribute.String(tracing.AttrMode, modeLabel),
		attribute.Int(tracing.AttrForcedFail, result.Diagnostics.ForcedFail),
	)
	o.logger.InfoContext(ctx, "audit completed",
		"failed", result.Failed(),
		"forced_fail", result.Diagnostics.ForcedFail,
		"escalations", result.Diagnostics.Escalations,
		"unrepairable", result.Diagnostics.Unrepairable,
		"mode", modeLabel,
		"elapsed_ms", result.Diagnostics.ElapsedMS,
	)
	return result, nil
}

// negotiate resolves the output mode once per process.
func (o *Orchestrator) negotiate(ctx context.Context) outputmode.Mode {
	ctx, span := o.tracer.Start(ctx, "audit.negotiate")
	defer span.End()

	mode := outputmode.ModePlainJSON
	if o.modes != nil {
		if m := o.modes.Mode(ctx); m != outputmode.ModeUnprobed {
			mode = m
		}
	}
	span.SetAttributes(attribute.String(tracing.AttrMode, mode.String()))
	o.metrics.SetMode(mode.String())
	return mode
}

// dispatch resolves every chunk with at most cfg.Concurrency in flight. Each
// chunk finishes escalation and forced-FAIL closure before it is folded.
func (o *Orchestrator) dispatch(ctx context.Context, chunks []scheduler.ChunkRequest, mode outputmode.Mode,
	condensed string, retries *coverage.RetryBudget, acc *verdict.Accumulator, diag *tally) {
	var (
		g    errgroup.Group
		done atomic.Int64
	)
	g.SetLimit(max(1, o.cfg.Concurrency))

	for _, ch := range chunks {
		ch.Mode = mode
		g.Go(func() error {
			cctx := logging.WithChunk(ctx, ch.Index)
			out := o.enforcer.Enforce(cctx, ch, condensed, retries)
			acc.Fold(out.Verdicts)
			diag.add(out)

			o.logger.DebugContext(cctx, "chunk resolved",
				"rules", len(ch.RuleIDs),
				"confirmed", len(out.Confirmed),
				"forced", len(out.Forced),
				"escalated", out.Escalated,
			)
			o.report(int(done.Add(1)), len(chunks))
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) report(done, total int) {
	if o.progress != nil {
		o.progress(done, total)
	}
}

// unresolved returns the ids that have no verdict yet.
func unresolved(acc *verdict.Accumulator, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !acc.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// tally aggregates chunk outcomes into Diagnostics.
type tally struct {
	mu          sync.Mutex
	d           Diagnostics
	limit       int
	sampleChars int
}

func (t *tally) add(out coverage.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.d.ForcedFail += len(out.Forced)
	if out.Escalated {
		t.d.Escalations++
	}
	for _, a := range out.Attempts {
		t.d.Calls++
		if a.Outcome.Attempts > 1 {
			t.d.Retries += a.Outcome.Attempts - 1
		}
		t.d.BytesSent += a.Outcome.BytesSent
		t.d.BytesReceived += a.Outcome.BytesReceived

		switch a.Outcome.Failure {
		case gateway.FailureTransient:
			t.d.Transient++
		case gateway.FailureRejected:
			t.d.Rejected++
		}
		if a.Unrepairable() {
			t.d.Unrepairable++
			if a.LikelyTruncated {
				t.d.LikelyTruncated++
			}
		} else if a.Outcome.OK() {
			if t.d.RepairStages == nil {
				t.d.RepairStages = make(map[string]int)
			}
			t.d.RepairStages[a.Stage.String()]++
		}
		if a.Outcome.Text != "" && len(t.d.RawSamples) < t.limit {
			t.d.RawSamples = append(t.d.RawSamples, rules.Truncate(a.Outcome.Text, t.sampleChars))
		}
	}
}
