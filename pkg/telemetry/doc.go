// Package telemetry groups the observability layers of medqc.
//
// # Components
//
//   - logging: slog loggers with PII redaction and audit context fields
//   - metrics: Prometheus collectors, exported through a textfile snapshot
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//
// # Usage
//
//	logger, _ := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(context.Background())
//
//	orchestrator := audit.New(cfg, catalog, gw, negotiator,
//	    audit.WithLogger(logger),
//	    audit.WithMetrics(collector),
//	    audit.WithTracer(tracer),
//	)
//
// Every component accepts nil metrics and tracers, so tests and the
// catalog commands run without any telemetry wiring.
//
// # PII Protection
//
// Clinical documents never reach a logger. Redaction covers identifiers
// that can leak through backend error bodies and raw response samples.
package telemetry
