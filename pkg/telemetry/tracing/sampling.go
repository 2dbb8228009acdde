package tracing

import (
	"fmt"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler names accepted in telemetry.tracing.sampler.
const (
	// SamplerAlways records every audit trace.
	SamplerAlways = "always"

	// SamplerNever records nothing; spans are still created but dropped.
	SamplerNever = "never"

	// SamplerRatio records the share of audits given by sample_ratio.
	SamplerRatio = "ratio"
)

// createSampler returns the root sampler for audit traces.
//
// The decision is taken once, on the "audit" root span, and inherited by
// its negotiation, chunk, escalation and backend call spans, so a sampled
// audit is always recorded whole:
//
//	telemetry:
//	  tracing:
//	    sampler: ratio
//	    sample_ratio: 0.25
//
// Ratio sampling hashes the trace id: one trace id, one decision.
func createSampler(name string, ratio float64) (sdktrace.Sampler, error) {
	var root sdktrace.Sampler
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SamplerAlways, "":
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("sample ratio must be within [0, 1], got %g", ratio)
		}
		root = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler %q (valid: always, never, ratio)", name)
	}
	return sdktrace.ParentBased(root), nil
}
