package metrics

import (
	"fmt"
	"time"

	"medqc-hq/medqc/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics in medqc.
// It manages metric registration and provides a unified interface for
// recording metrics across the audit pipeline.
//
// A nil *Collector is valid; every Record method is then a no-op.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	audit   *AuditMetrics
	backend *BackendMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	resolved := config.MetricsConfig{}
	if cfg != nil {
		resolved = *cfg
	}
	if resolved.Namespace == "" {
		resolved.Namespace = config.DefaultMetricsNamespace
	}
	if resolved.Subsystem == "" {
		resolved.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(resolved.LatencyBuckets) == 0 {
		resolved.LatencyBuckets = append([]float64(nil), config.DefaultLatencyBuckets...)
	}

	return &Collector{
		config:   &resolved,
		registry: registry,
		audit:    NewAuditMetrics(&resolved, registry),
		backend:  NewBackendMetrics(&resolved, registry),
	}
}

// RecordAudit records a finished audit.
//
// Parameters:
//   - mode: negotiated output mode ("schema", "grammar", "plain_json", or "none" when inference was skipped)
//   - duration: wall time of the whole audit
//   - forced: number of rules resolved through the forced-FAIL path
func (c *Collector) RecordAudit(mode string, duration time.Duration, forced int) {
	if c == nil {
		return
	}
	c.audit.RecordAudit(mode, duration, forced)
}

// RecordChunk records the coverage outcome of one chunk.
//
// Parameters:
//   - outcome: "accepted", "escalated" or "forced"
func (c *Collector) RecordChunk(outcome string) {
	if c == nil {
		return
	}
	c.audit.RecordChunk(outcome)
}

// RecordEscalation records one escalation (a chunk split into halves).
func (c *Collector) RecordEscalation() {
	if c == nil {
		return
	}
	c.audit.RecordEscalation()
}

// RecordRepairStage records which coercion stage produced a response.
func (c *Collector) RecordRepairStage(stage string) {
	if c == nil {
		return
	}
	c.audit.RecordRepairStage(stage)
}

// RecordUnrepairable records a backend response that no repair stage could parse.
func (c *Collector) RecordUnrepairable() {
	if c == nil {
		return
	}
	c.audit.RecordUnrepairable()
}

// SetMode publishes the negotiated output mode as a one-hot gauge.
func (c *Collector) SetMode(mode string) {
	if c == nil {
		return
	}
	c.audit.SetMode(mode)
}

// RecordCall records one gateway call, including all of its attempts.
//
// Parameters:
//   - backend: backend name (e.g., "ollama")
//   - failure: "none", "transient" or "rejected"
//   - attempts: number of HTTP attempts made
//   - latency: wall time of the call
//   - sent, received: bytes on the wire across attempts
func (c *Collector) RecordCall(backend, failure string, attempts int, latency time.Duration, sent, received int64) {
	if c == nil {
		return
	}
	c.backend.RecordCall(backend, failure, latency)
	if attempts > 1 {
		c.backend.RecordRetries(backend, attempts-1)
	}
	c.backend.RecordBytes(backend, sent, received)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// WriteToTextfile writes a snapshot of every registered metric to path in
// the text exposition format read by the node_exporter textfile collector.
// The file is written atomically.
func (c *Collector) WriteToTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
