package config

import "time"

// Config is the root configuration structure for medqc.
// It is loaded once at startup and passed explicitly to the components
// that need it.
type Config struct {
	// Backend configures the inference backend the audit talks to.
	Backend BackendConfig `yaml:"backend"`

	// Catalog points at the rule catalog.
	Catalog CatalogConfig `yaml:"catalog"`

	// Audit contains chunking, budget and coverage settings.
	Audit AuditConfig `yaml:"audit"`

	// Document controls how the document is condensed before inference.
	Document DocumentConfig `yaml:"document"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BackendConfig contains configuration for the inference backend.
type BackendConfig struct {
	// Type selects the wire adapter.
	// Options: "ollama", "openai"
	// Default: "ollama"
	Type string `yaml:"type"`

	// Name identifies the backend in logs and metrics.
	// Default: same as Type
	Name string `yaml:"name"`

	// BaseURL is the backend endpoint. For "openai" it includes the API
	// version prefix (e.g., "http://localhost:8000/v1").
	// Default: "http://localhost:11434"
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key"`

	// Model is the model name requested from the backend. Required.
	Model string `yaml:"model"`

	// ConnectTimeout bounds TCP connection establishment.
	// Default: 5s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ReadTimeout bounds one attempt from request write to full response.
	// Default: 180s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// MaxRetries is the number of extra attempts for transient failures.
	// A negative value disables retries.
	// Default: 1
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the fixed pause between attempts.
	// Default: 200ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// Temperature is the sampling temperature.
	// Default: 0
	Temperature float64 `yaml:"temperature"`

	// ContextWindow is the context size requested from the backend (num_ctx).
	// Default: 3072
	ContextWindow int `yaml:"context_window"`

	// KeepAlive asks the backend to keep the model loaded between calls.
	// Default: "30m"
	KeepAlive string `yaml:"keep_alive"`

	// OutputMode forces the structured-output mode instead of probing.
	// Options: "", "auto", "schema", "grammar", "plain_json"
	// Default: "" (probe)
	OutputMode string `yaml:"output_mode"`

	// ProbeTimeout bounds each smoke test during mode negotiation.
	// Default: 12s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// MaxIdleConns is the pool size of the HTTP transport.
	// Default: 10
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-host pool size of the HTTP transport.
	// Default: 5
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes pooled connections idle for this long.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// CatalogConfig locates the rule catalog.
type CatalogConfig struct {
	// Path is a YAML file or a directory of *.yml / *.yaml files.
	// Default: "./rules"
	Path string `yaml:"path"`
}

// AuditConfig contains settings for one audit run.
type AuditConfig struct {
	// ChunkSize is the maximum number of rules per inference call.
	// Default: 6
	ChunkSize int `yaml:"chunk_size"`

	// MaxViolations caps the violations the backend may report per chunk.
	// Default: 10
	MaxViolations int `yaml:"max_violations"`

	// EvidenceMaxChars caps evidence length in the output contract.
	// Default: 90
	EvidenceMaxChars int `yaml:"evidence_max_chars"`

	// MaxOutputTokens is the generation budget per chunk call.
	// Default: 768
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// MinCoverageFraction is the share of requested rules a chunk response
	// must confirm to be accepted without escalation.
	// Default: 0.5
	MinCoverageFraction float64 `yaml:"min_coverage_fraction"`

	// RetryBudget is the number of escalations allowed per audit.
	// A negative value disables escalation.
	// Default: 1
	RetryBudget int `yaml:"retry_budget"`

	// EscalationShrink scales the output budget of each escalation half.
	// Default: 0.5
	EscalationShrink float64 `yaml:"escalation_shrink"`

	// Concurrency is the number of chunks in flight.
	// Default: 1
	Concurrency int `yaml:"concurrency"`

	// Timeout is the deadline for a whole audit. A negative value means none.
	// Default: 10m
	Timeout time.Duration `yaml:"timeout"`

	// SkipInference resolves every rule without calling the backend.
	// Default: false
	SkipInference bool `yaml:"skip_inference"`

	// RawSamples is the number of raw backend outputs kept for diagnostics.
	// Default: 3
	RawSamples int `yaml:"raw_samples"`

	// RawSampleChars caps the length of each kept raw output.
	// Default: 160
	RawSampleChars int `yaml:"raw_sample_chars"`

	// SystemPrompt replaces the built-in system instruction when set.
	SystemPrompt string `yaml:"system_prompt"`
}

// DocumentConfig controls document condensation.
type DocumentConfig struct {
	// Strategy selects the condenser.
	// Options: "focus", "full"
	// Default: "focus"
	Strategy string `yaml:"strategy"`

	// OutputBudgetTokens is reserved for the model's answer.
	// Default: 140
	OutputBudgetTokens int `yaml:"output_budget_tokens"`

	// SystemBudgetTokens is reserved for the system instruction and rules.
	// Default: 650
	SystemBudgetTokens int `yaml:"system_budget_tokens"`

	// MinInputTokens is the floor of the document budget.
	// Default: 512
	MinInputTokens int `yaml:"min_input_tokens"`

	// CharsPerToken is the average characters per token of the model.
	// Default: 3.7
	CharsPerToken float64 `yaml:"chars_per_token"`

	// HeadChars is the size of the leading window.
	// Default: 5000
	HeadChars int `yaml:"head_chars"`

	// TailChars is the size of the trailing window.
	// Default: 3000
	TailChars int `yaml:"tail_chars"`

	// WindowBefore is the context kept before a heading match.
	// Default: 1400
	WindowBefore int `yaml:"window_before"`

	// WindowAfter is the context kept after a heading match.
	// Default: 3200
	WindowAfter int `yaml:"window_after"`

	// Headings are case-insensitive regular expressions anchoring windows.
	// Default: built-in clinical section headings
	Headings []string `yaml:"headings"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// DisableRedaction turns off PII redaction of log attributes.
	// Default: false
	DisableRedaction bool `yaml:"disable_redaction"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Namespace is the metric name prefix.
	// Default: "medqc"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "audit"
	Subsystem string `yaml:"subsystem"`

	// LatencyBuckets defines histogram buckets for backend call latency (seconds).
	// Default: [0.5, 1, 2.5, 5, 10, 30, 60, 120, 180]
	LatencyBuckets []float64 `yaml:"latency_buckets"`

	// TextfilePath, when set, receives a Prometheus text-format snapshot
	// after each audit (node_exporter textfile collector).
	TextfilePath string `yaml:"textfile_path"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint (e.g., "localhost:4317").
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "medqc"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
