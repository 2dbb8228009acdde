// Package tracing provides OpenTelemetry distributed tracing for medqc.
//
// # Overview
//
// An audit produces one trace: a root "audit" span with child spans for mode
// negotiation, every chunk, every backend call and every escalation. Spans
// are exported over OTLP gRPC. Outgoing backend requests carry the W3C
// traceparent header.
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces (development/debugging)
//   - never: Sample no traces
//   - ratio: Sample a fraction of traces
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "audit")
//	defer span.End()
//	tracing.SetAuditAttributes(span, auditID, docName, catalog.Len())
//
// When tracing is disabled the tracer is a noop and spans cost almost nothing.
package tracing
