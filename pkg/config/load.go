package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEDQC_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention MEDQC_SECTION_FIELD (e.g., MEDQC_BACKEND_BASE_URL).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults, so a deployment can
// be configured from the environment alone.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = &Config{}
		ApplyDefaults(cfg)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean or duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Backend overrides
	envString("BACKEND_TYPE", &cfg.Backend.Type)
	envString("BACKEND_NAME", &cfg.Backend.Name)
	envString("BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	envString("BACKEND_API_KEY", &cfg.Backend.APIKey)
	envString("BACKEND_MODEL", &cfg.Backend.Model)
	envDuration("BACKEND_CONNECT_TIMEOUT", &cfg.Backend.ConnectTimeout)
	envDuration("BACKEND_READ_TIMEOUT", &cfg.Backend.ReadTimeout)
	envInt("BACKEND_MAX_RETRIES", &cfg.Backend.MaxRetries)
	envDuration("BACKEND_RETRY_BACKOFF", &cfg.Backend.RetryBackoff)
	envFloat("BACKEND_TEMPERATURE", &cfg.Backend.Temperature)
	envInt("BACKEND_CONTEXT_WINDOW", &cfg.Backend.ContextWindow)
	envString("BACKEND_KEEP_ALIVE", &cfg.Backend.KeepAlive)
	envString("BACKEND_OUTPUT_MODE", &cfg.Backend.OutputMode)
	envDuration("BACKEND_PROBE_TIMEOUT", &cfg.Backend.ProbeTimeout)

	// Catalog overrides
	envString("CATALOG_PATH", &cfg.Catalog.Path)

	// Audit overrides
	envInt("AUDIT_CHUNK_SIZE", &cfg.Audit.ChunkSize)
	envInt("AUDIT_MAX_VIOLATIONS", &cfg.Audit.MaxViolations)
	envInt("AUDIT_EVIDENCE_MAX_CHARS", &cfg.Audit.EvidenceMaxChars)
	envInt("AUDIT_MAX_OUTPUT_TOKENS", &cfg.Audit.MaxOutputTokens)
	envFloat("AUDIT_MIN_COVERAGE_FRACTION", &cfg.Audit.MinCoverageFraction)
	envInt("AUDIT_RETRY_BUDGET", &cfg.Audit.RetryBudget)
	envFloat("AUDIT_ESCALATION_SHRINK", &cfg.Audit.EscalationShrink)
	envInt("AUDIT_CONCURRENCY", &cfg.Audit.Concurrency)
	envDuration("AUDIT_TIMEOUT", &cfg.Audit.Timeout)
	envBool("AUDIT_SKIP_INFERENCE", &cfg.Audit.SkipInference)

	// Document overrides
	envString("DOCUMENT_STRATEGY", &cfg.Document.Strategy)
	envInt("DOCUMENT_OUTPUT_BUDGET_TOKENS", &cfg.Document.OutputBudgetTokens)
	envInt("DOCUMENT_SYSTEM_BUDGET_TOKENS", &cfg.Document.SystemBudgetTokens)
	envFloat("DOCUMENT_CHARS_PER_TOKEN", &cfg.Document.CharsPerToken)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_DISABLE_REDACTION", &cfg.Telemetry.Logging.DisableRedaction)
	envString("TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
