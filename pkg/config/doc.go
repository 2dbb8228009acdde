// Package config provides configuration management for medqc.
//
// This package handles loading, validating, and defaulting configuration from
// YAML files with environment variable overrides. The resulting *Config is
// created once in main and passed to the components that need it; there is
// no package-level instance.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("medqc.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("medqc.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention MEDQC_SECTION_FIELD.
// For example:
//
//   - MEDQC_BACKEND_BASE_URL overrides backend.base_url
//   - MEDQC_BACKEND_MODEL overrides backend.model
//   - MEDQC_AUDIT_CHUNK_SIZE overrides audit.chunk_size
//   - MEDQC_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation collects every problem into a single ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - backend.model: model is required
//	  - audit.min_coverage_fraction: min coverage fraction must be in (0, 1]
//
// # Example Configuration
//
//	backend:
//	  type: "ollama"
//	  base_url: "http://localhost:11434"
//	  model: "qwen2.5:7b-instruct"
//
//	catalog:
//	  path: "./rules"
//
//	audit:
//	  chunk_size: 6
//	  min_coverage_fraction: 0.5
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
