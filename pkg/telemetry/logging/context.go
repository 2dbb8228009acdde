package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// AuditIDKey is the context key for audit IDs.
	AuditIDKey contextKey = "audit_id"

	// ChunkKey is the context key for the chunk index being processed.
	ChunkKey contextKey = "chunk"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"
)

// WithAuditID adds an audit ID to the context.
func WithAuditID(ctx context.Context, auditID string) context.Context {
	return context.WithValue(ctx, AuditIDKey, auditID)
}

// GetAuditID retrieves the audit ID from the context.
func GetAuditID(ctx context.Context) string {
	if auditID, ok := ctx.Value(AuditIDKey).(string); ok {
		return auditID
	}
	return ""
}

// WithChunk adds a chunk index to the context.
func WithChunk(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, ChunkKey, index)
}

// GetChunk retrieves the chunk index from the context.
func GetChunk(ctx context.Context) (int, bool) {
	index, ok := ctx.Value(ChunkKey).(int)
	return index, ok
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// contextAttrs extracts common fields from context for logging.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var fields []slog.Attr
	if auditID := GetAuditID(ctx); auditID != "" {
		fields = append(fields, slog.String(string(AuditIDKey), auditID))
	}
	if index, ok := GetChunk(ctx); ok {
		fields = append(fields, slog.Int(string(ChunkKey), index))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, slog.String(string(TraceIDKey), traceID))
	}
	return fields
}
