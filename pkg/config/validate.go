package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"medqc-hq/medqc/pkg/outputmode"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "audit.chunk_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether a field error exists for the given dotted path.
func (e ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBackend(&cfg.Backend)...)

	if strings.TrimSpace(cfg.Catalog.Path) == "" {
		errs = append(errs, FieldError{Field: "catalog.path", Message: "catalog path is required"})
	}

	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateDocument(&cfg.Document)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateBackend(cfg *BackendConfig) []FieldError {
	var errs []FieldError

	switch cfg.Type {
	case "ollama", "openai":
	case "":
		errs = append(errs, FieldError{Field: "backend.type", Message: "backend type is required"})
	default:
		errs = append(errs, FieldError{
			Field:   "backend.type",
			Message: fmt.Sprintf("unsupported backend type %q: must be 'ollama' or 'openai'", cfg.Type),
		})
	}

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{Field: "backend.base_url", Message: "base URL is required"})
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("invalid base URL %q: must be an absolute http(s) URL", cfg.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, FieldError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("unsupported URL scheme %q", u.Scheme),
		})
	}

	if strings.TrimSpace(cfg.Model) == "" {
		errs = append(errs, FieldError{Field: "backend.model", Message: "model is required"})
	}

	if cfg.ConnectTimeout < 0 {
		errs = append(errs, FieldError{Field: "backend.connect_timeout", Message: "connect timeout must be positive"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "backend.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.RetryBackoff < 0 {
		errs = append(errs, FieldError{Field: "backend.retry_backoff", Message: "retry backoff must be non-negative"})
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, FieldError{Field: "backend.temperature", Message: "temperature must be between 0 and 2"})
	}
	if cfg.ContextWindow < 0 {
		errs = append(errs, FieldError{Field: "backend.context_window", Message: "context window must be positive"})
	}
	if _, err := outputmode.ParseMode(cfg.OutputMode); err != nil {
		errs = append(errs, FieldError{Field: "backend.output_mode", Message: err.Error()})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if cfg.ChunkSize <= 0 {
		errs = append(errs, FieldError{Field: "audit.chunk_size", Message: "chunk size must be positive"})
	}
	if cfg.MaxViolations <= 0 {
		errs = append(errs, FieldError{Field: "audit.max_violations", Message: "max violations must be positive"})
	}
	if cfg.EvidenceMaxChars <= 0 {
		errs = append(errs, FieldError{Field: "audit.evidence_max_chars", Message: "evidence limit must be positive"})
	}
	if cfg.MaxOutputTokens <= 0 {
		errs = append(errs, FieldError{Field: "audit.max_output_tokens", Message: "output token budget must be positive"})
	}
	if cfg.MinCoverageFraction <= 0 || cfg.MinCoverageFraction > 1 {
		errs = append(errs, FieldError{
			Field:   "audit.min_coverage_fraction",
			Message: "min coverage fraction must be in (0, 1]",
		})
	}
	if cfg.EscalationShrink <= 0 || cfg.EscalationShrink > 1 {
		errs = append(errs, FieldError{
			Field:   "audit.escalation_shrink",
			Message: "escalation shrink must be in (0, 1]",
		})
	}
	if cfg.Concurrency <= 0 {
		errs = append(errs, FieldError{Field: "audit.concurrency", Message: "concurrency must be positive"})
	}
	if cfg.RawSamples < 0 || cfg.RawSampleChars < 0 {
		errs = append(errs, FieldError{Field: "audit.raw_samples", Message: "raw sample settings must be non-negative"})
	}

	return errs
}

func validateDocument(cfg *DocumentConfig) []FieldError {
	var errs []FieldError

	switch cfg.Strategy {
	case "focus", "full":
	default:
		errs = append(errs, FieldError{
			Field:   "document.strategy",
			Message: fmt.Sprintf("invalid strategy %q: must be 'focus' or 'full'", cfg.Strategy),
		})
	}
	if cfg.CharsPerToken <= 0 {
		errs = append(errs, FieldError{Field: "document.chars_per_token", Message: "chars per token must be positive"})
	}
	if cfg.MinInputTokens <= 0 {
		errs = append(errs, FieldError{Field: "document.min_input_tokens", Message: "min input tokens must be positive"})
	}
	for i, h := range cfg.Headings {
		if _, err := regexp.Compile(h); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("document.headings[%d]", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	for i := 1; i < len(cfg.Metrics.LatencyBuckets); i++ {
		if cfg.Metrics.LatencyBuckets[i] <= cfg.Metrics.LatencyBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.latency_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
