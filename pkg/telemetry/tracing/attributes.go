package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span Attribute Helpers
//
// Custom attribute keys use the "medqc.*" namespace:
//   - medqc.audit.*: audit-level attributes
//   - medqc.chunk.*: one unit of inference work
//   - medqc.backend.*: the inference backend and a call outcome

// Common attribute keys used throughout the system
const (
	// Audit attributes
	AttrAuditID    = "medqc.audit.id"
	AttrDocName    = "medqc.audit.doc_name"
	AttrRulesTotal = "medqc.audit.rules_total"
	AttrMode       = "medqc.audit.mode"
	AttrForcedFail = "medqc.audit.forced_fail"

	// Chunk attributes
	AttrChunkIndex = "medqc.chunk.index"
	AttrChunkRules = "medqc.chunk.rules"
	AttrEscalated  = "medqc.chunk.escalated"
	AttrConfirmed  = "medqc.chunk.confirmed"

	// Backend attributes
	AttrBackend       = "medqc.backend.name"
	AttrModel         = "medqc.backend.model"
	AttrAttempts      = "medqc.backend.attempts"
	AttrFailure       = "medqc.backend.failure"
	AttrBytesSent     = "medqc.backend.bytes_sent"
	AttrBytesReceived = "medqc.backend.bytes_received"
	AttrRepairStage   = "medqc.backend.repair_stage"

	// Error attributes
	AttrErrorMessage = "error.message"
)

// SetAuditAttributes sets audit-level attributes on a span.
func SetAuditAttributes(span trace.Span, auditID, docName string, rulesTotal int) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrAuditID, auditID),
		attribute.Int(AttrRulesTotal, rulesTotal),
	}
	if docName != "" {
		attrs = append(attrs, attribute.String(AttrDocName, docName))
	}
	span.SetAttributes(attrs...)
}

// SetChunkAttributes sets chunk attributes on a span.
func SetChunkAttributes(span trace.Span, index, rules int, mode string) {
	span.SetAttributes(
		attribute.Int(AttrChunkIndex, index),
		attribute.Int(AttrChunkRules, rules),
		attribute.String(AttrMode, mode),
	)
}

// SetBackendAttributes sets backend identity attributes on a span.
func SetBackendAttributes(span trace.Span, backend, model string) {
	span.SetAttributes(
		attribute.String(AttrBackend, backend),
		attribute.String(AttrModel, model),
	)
}

// SetCallAttributes records the outcome of one gateway call.
func SetCallAttributes(span trace.Span, attempts int, failure string, sent, received int64) {
	span.SetAttributes(
		attribute.Int(AttrAttempts, attempts),
		attribute.String(AttrFailure, failure),
		attribute.Int64(AttrBytesSent, sent),
		attribute.Int64(AttrBytesReceived, received),
	)
}

// AddEvent adds an event to a span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
