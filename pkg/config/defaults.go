package config

import "time"

// Default values for configuration fields.
const (
	// Backend defaults
	DefaultBackendType         = "ollama"
	DefaultBackendBaseURL      = "http://localhost:11434"
	DefaultConnectTimeout      = 5 * time.Second
	DefaultReadTimeout         = 180 * time.Second
	DefaultMaxRetries          = 1
	DefaultRetryBackoff        = 200 * time.Millisecond
	DefaultContextWindow       = 3072
	DefaultKeepAlive           = "30m"
	DefaultProbeTimeout        = 12 * time.Second
	DefaultMaxIdleConns        = 10
	DefaultMaxIdleConnsPerHost = 5
	DefaultIdleConnTimeout     = 90 * time.Second

	// Catalog defaults
	DefaultCatalogPath = "./rules"

	// Audit defaults
	DefaultChunkSize           = 6
	DefaultMaxViolations       = 10
	DefaultEvidenceMaxChars    = 90
	DefaultMaxOutputTokens     = 768
	DefaultMinCoverageFraction = 0.5
	DefaultRetryBudget         = 1
	DefaultEscalationShrink    = 0.5
	DefaultConcurrency         = 1
	DefaultAuditTimeout        = 10 * time.Minute
	DefaultRawSamples          = 3
	DefaultRawSampleChars      = 160

	// Document defaults
	DefaultDocumentStrategy   = "focus"
	DefaultOutputBudgetTokens = 140
	DefaultSystemBudgetTokens = 650
	DefaultMinInputTokens     = 512
	DefaultCharsPerToken      = 3.7
	DefaultHeadChars          = 5000
	DefaultTailChars          = 3000
	DefaultWindowBefore       = 1400
	DefaultWindowAfter        = 3200

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsNamespace    = "medqc"
	DefaultMetricsSubsystem    = "audit"
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "medqc"
	DefaultOTLPTimeout         = 10 * time.Second
)

// DefaultLatencyBuckets are histogram buckets for backend call latency in seconds.
var DefaultLatencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180}

// DefaultHeadings anchor the condenser's windows on the sections of a
// Russian inpatient record where most rules find their evidence.
var DefaultHeadings = []string{
	`приемн\p{L}* отделен`, `экстренн\p{L}* госпитал`,
	`поступил`, `время поступ`, `дата поступ`,
	`осмотр врача отделен`, `первичн\p{L}* осмотр`, `заведующ\p{L}* отделен`,
	`обоснован\p{L}* диагноз`, `клиническ\p{L}* диагноз`,
	`предоперационн\p{L}* эпикриз`, `послеоперационн\p{L}* дневник`, `этапн\p{L}* эпикриз`,
	`протокол операц`, `протокол анестез`, `аб-?профилакти`,
	`кровопотер`, `осложнен`, `биопс`,
	`предтрансфузионн\p{L}* эпикриз`, `кщс`, `гемоглоб`,
	`сатурац|spo2`, `пульс`, `артериальн\p{L}* давлен`,
	`реанимац|слр|сердечно-?\s*легочн\p{L}* реанимац`,
	`дневник`, `тяжел\p{L}* состояни`,
	`консилиум`, `лист назначен`, `режим`, `лечебн\p{L}* стол|диет`,
}

// ApplyDefaults fills every zero-valued field with its default.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyBackendDefaults(&cfg.Backend)

	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = DefaultCatalogPath
	}

	applyAuditDefaults(&cfg.Audit)
	applyDocumentDefaults(&cfg.Document)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyBackendDefaults(b *BackendConfig) {
	if b.Type == "" {
		b.Type = DefaultBackendType
	}
	if b.Name == "" {
		b.Name = b.Type
	}
	if b.BaseURL == "" {
		b.BaseURL = DefaultBackendBaseURL
	}
	if b.ConnectTimeout == 0 {
		b.ConnectTimeout = DefaultConnectTimeout
	}
	if b.ReadTimeout == 0 {
		b.ReadTimeout = DefaultReadTimeout
	}
	if b.MaxRetries == 0 {
		b.MaxRetries = DefaultMaxRetries
	}
	if b.RetryBackoff == 0 {
		b.RetryBackoff = DefaultRetryBackoff
	}
	if b.ContextWindow == 0 {
		b.ContextWindow = DefaultContextWindow
	}
	if b.KeepAlive == "" {
		b.KeepAlive = DefaultKeepAlive
	}
	if b.ProbeTimeout == 0 {
		b.ProbeTimeout = DefaultProbeTimeout
	}
	if b.MaxIdleConns == 0 {
		b.MaxIdleConns = DefaultMaxIdleConns
	}
	if b.MaxIdleConnsPerHost == 0 {
		b.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if b.IdleConnTimeout == 0 {
		b.IdleConnTimeout = DefaultIdleConnTimeout
	}
}

func applyAuditDefaults(a *AuditConfig) {
	if a.ChunkSize == 0 {
		a.ChunkSize = DefaultChunkSize
	}
	if a.MaxViolations == 0 {
		a.MaxViolations = DefaultMaxViolations
	}
	if a.EvidenceMaxChars == 0 {
		a.EvidenceMaxChars = DefaultEvidenceMaxChars
	}
	if a.MaxOutputTokens == 0 {
		a.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if a.MinCoverageFraction == 0 {
		a.MinCoverageFraction = DefaultMinCoverageFraction
	}
	if a.RetryBudget == 0 {
		a.RetryBudget = DefaultRetryBudget
	}
	if a.EscalationShrink == 0 {
		a.EscalationShrink = DefaultEscalationShrink
	}
	if a.Concurrency == 0 {
		a.Concurrency = DefaultConcurrency
	}
	if a.Timeout == 0 {
		a.Timeout = DefaultAuditTimeout
	}
	if a.RawSamples == 0 {
		a.RawSamples = DefaultRawSamples
	}
	if a.RawSampleChars == 0 {
		a.RawSampleChars = DefaultRawSampleChars
	}
}

func applyDocumentDefaults(d *DocumentConfig) {
	if d.Strategy == "" {
		d.Strategy = DefaultDocumentStrategy
	}
	if d.OutputBudgetTokens == 0 {
		d.OutputBudgetTokens = DefaultOutputBudgetTokens
	}
	if d.SystemBudgetTokens == 0 {
		d.SystemBudgetTokens = DefaultSystemBudgetTokens
	}
	if d.MinInputTokens == 0 {
		d.MinInputTokens = DefaultMinInputTokens
	}
	if d.CharsPerToken == 0 {
		d.CharsPerToken = DefaultCharsPerToken
	}
	if d.HeadChars == 0 {
		d.HeadChars = DefaultHeadChars
	}
	if d.TailChars == 0 {
		d.TailChars = DefaultTailChars
	}
	if d.WindowBefore == 0 {
		d.WindowBefore = DefaultWindowBefore
	}
	if d.WindowAfter == 0 {
		d.WindowAfter = DefaultWindowAfter
	}
	if len(d.Headings) == 0 {
		d.Headings = append([]string(nil), DefaultHeadings...)
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.LatencyBuckets) == 0 {
		t.Metrics.LatencyBuckets = append([]float64(nil), DefaultLatencyBuckets...)
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}

// NewDefaultConfig returns a configuration with every default applied and
// the given model selected.
func NewDefaultConfig(model string) *Config {
	cfg := &Config{Backend: BackendConfig{Model: model}}
	ApplyDefaults(cfg)
	return cfg
}
