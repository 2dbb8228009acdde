package outputmode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SmokeTester sends a single short request under a constraint and returns
// the raw content. Implementations must not retry.
type SmokeTester interface {
	Smoke(ctx context.Context, c Constraint) (string, error)
}

// ProbeReport is the outcome of one round of smoke tests.
type ProbeReport struct {
	// Selected is the mode negotiation chose.
	Selected Mode

	// Override is true when Selected came from operator configuration.
	Override bool

	// SchemaErr is nil when the schema test passed or did not run.
	SchemaErr error

	// GrammarErr is nil when the grammar test passed or did not run.
	GrammarErr error

	// Elapsed is the total smoke test time.
	Elapsed time.Duration
}

// Negotiator selects the best structured-output mode once per process and
// memoizes the result. It is safe for concurrent use.
type Negotiator struct {
	tester   SmokeTester
	override Mode
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	probed atomic.Bool
	report ProbeReport
}

// NewNegotiator creates a negotiator. A non-empty override is selected
// without contacting the backend. timeout bounds each smoke test (0 means
// only the caller's context applies).
func NewNegotiator(tester SmokeTester, override Mode, timeout time.Duration, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		tester:   tester,
		override: override,
		timeout:  timeout,
		logger:   logger.With("component", "outputmode"),
	}
}

// Mode returns the negotiated mode, probing the backend on first use.
// A negotiation cut short by ctx is not memoized: the caller gets its
// result and the next call probes again.
func (n *Negotiator) Mode(ctx context.Context) Mode {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.probed.Load() {
		return n.report.Selected
	}

	rep := n.Probe(ctx)
	if err := ctx.Err(); err != nil && !rep.Override {
		n.logger.Warn("output mode negotiation interrupted",
			"mode", rep.Selected.String(),
			"error", err,
		)
		return rep.Selected
	}

	n.report = rep
	n.logger.Info("output mode negotiated",
		"mode", rep.Selected.String(),
		"override", rep.Override,
		"elapsed_ms", rep.Elapsed.Milliseconds(),
	)
	n.probed.Store(true)
	return rep.Selected
}

// Report returns the memoized probe report. It is the zero value before the
// first call to Mode.
func (n *Negotiator) Report() ProbeReport {
	if !n.probed.Load() {
		return ProbeReport{}
	}
	return n.report
}

// Probe runs the smoke tests without memoizing: schema first, then grammar,
// then plain JSON as the floor.
func (n *Negotiator) Probe(ctx context.Context) ProbeReport {
	start := time.Now()
	if n.override != ModeUnprobed {
		return ProbeReport{Selected: n.override, Override: true}
	}

	rep := ProbeReport{}
	if rep.SchemaErr = n.check(ctx, Constraint{Mode: ModeSchema, SchemaName: "smoke", Schema: SmokeSchema()}); rep.SchemaErr == nil {
		rep.Selected = ModeSchema
	} else if rep.GrammarErr = n.check(ctx, Constraint{Mode: ModeGrammar, Grammar: SmokeGrammar}); rep.GrammarErr == nil {
		rep.Selected = ModeGrammar
	} else {
		rep.Selected = ModePlainJSON
	}
	rep.Elapsed = time.Since(start)

	if rep.SchemaErr != nil {
		n.logger.Debug("schema smoke test failed", "error", rep.SchemaErr)
	}
	if rep.GrammarErr != nil {
		n.logger.Debug("grammar smoke test failed", "error", rep.GrammarErr)
	}
	return rep
}

func (n *Negotiator) check(ctx context.Context, c Constraint) error {
	if n.tester == nil {
		return &UnsupportedError{Mode: c.Mode, Reason: "no backend configured"}
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	content, err := n.tester.Smoke(ctx, c)
	if err != nil {
		return &UnsupportedError{Mode: c.Mode, Reason: "smoke request failed", Cause: err}
	}

	ok, err := smokeAnswer(content)
	if err != nil {
		return &UnsupportedError{Mode: c.Mode, Reason: "constraint ignored by backend", Cause: err}
	}
	if c.Mode == ModeGrammar && !ok {
		return &UnsupportedError{Mode: c.Mode, Reason: "constraint ignored by backend"}
	}
	return nil
}

// smokeAnswer decodes a smoke reply. The reply must be a JSON object whose
// "ok" member is a boolean.
func smokeAnswer(content string) (bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &fields); err != nil {
		return false, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	raw, found := fields["ok"]
	if !found {
		return false, errors.New(`reply has no "ok" member`)
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, fmt.Errorf(`"ok" is not a boolean: %w`, err)
	}
	return ok, nil
}
