/*
Package audit runs one document through the whole pipeline and returns a
verdict for every catalog rule.

# Sequence

	validate → deadline → seed deterministic verdicts → negotiate mode
	→ condense document → schedule chunks → per chunk: gateway → coerce
	→ coverage → fold → closed-world check → Result

Chunks run one at a time by default. With audit.concurrency > 1 up to that
many chunks are in flight; each finishes its escalation and forced-FAIL
closure before its verdicts are folded into the shared accumulator. Folding
is a FAIL-dominates-PASS merge, so the final map does not depend on
completion order.

# Usage

	negotiator := outputmode.NewNegotiator(gw, override, cfg.Backend.ProbeTimeout, logger)
	orch, err := audit.New(cfg, catalog, gw, negotiator,
	    audit.WithLogger(logger),
	    audit.WithMetrics(collector),
	)
	if err != nil {
	    return err
	}
	res, err := orch.Audit(ctx, audit.Request{DocName: name, Text: text})

# Failure model

Audit returns an error only for an empty document, a failing deterministic
checker or document provider, and a *CoverageGapError (a defect). A slow or
broken backend, an expired deadline or a cancelled context all produce a
complete Result whose unconfirmed rules are FAIL; Diagnostics records what
went wrong.
*/
package audit
