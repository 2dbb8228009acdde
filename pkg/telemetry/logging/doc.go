// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package builds a standard *slog.Logger with:
//   - JSON or text output
//   - Automatic PII redaction (API keys, bearer tokens, emails, phone
//     numbers, 12-digit national ids, plus configured patterns)
//   - Audit fields (audit_id, chunk, trace_id) pulled from the context
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithAuditID(ctx, auditID)
//	logger.InfoContext(ctx, "audit started", "rules", catalog.Len())
//
// Components receive the logger through their options and tag it with
// "component". Document text must never be passed to a logger; redaction
// is a safety net for identifiers in backend errors and raw samples.
//
// # PII Redaction
//
//   - API keys: sk-abc123xyz → sk-***
//   - Bearer tokens: Bearer eyJ... → Bearer ***
//   - Emails: ivanov@clinic.ru → ***@clinic.ru
//   - Phones: +7 (912) 345-67-89 → +*-***-***-**-**
//   - National ids: 123456789012 → ************
//
// Attributes whose key names a secret (password, token, api_key, ...) are
// masked regardless of their content.
package logging
