package metrics

import (
	"time"

	"medqc-hq/medqc/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// modes lists every value the mode gauge can take.
var modes = []string{"schema", "grammar", "plain_json"}

// AuditMetrics tracks metrics related to audit orchestration.
//
// Metrics:
//   - medqc_audit_audits_total: Completed audits by negotiated mode
//   - medqc_audit_duration_seconds: Audit wall time
//   - medqc_audit_chunks_total: Chunks by coverage outcome
//   - medqc_audit_escalations_total: Chunks split after weak coverage
//   - medqc_audit_forced_fail_total: Rules resolved without inference confirmation
//   - medqc_audit_repair_stages_total: Coercion stage that parsed each response
//   - medqc_audit_unrepairable_total: Responses no repair stage could parse
//   - medqc_audit_output_mode: Negotiated output mode (one-hot)
type AuditMetrics struct {
	auditsTotal      *prometheus.CounterVec
	auditDuration    prometheus.Histogram
	chunksTotal      *prometheus.CounterVec
	escalationsTotal prometheus.Counter
	forcedFailTotal  prometheus.Counter
	repairStages     *prometheus.CounterVec
	unrepairable     prometheus.Counter
	mode             *prometheus.GaugeVec
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		auditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audits_total",
				Help:      "Total number of completed audits",
			},
			[]string{"mode"},
		),

		auditDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "duration_seconds",
				Help:      "Duration of audits in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~17m
			},
		),

		chunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "chunks_total",
				Help:      "Total number of chunks by coverage outcome",
			},
			[]string{"outcome"},
		),

		escalationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "escalations_total",
				Help:      "Total number of chunks split after weak coverage",
			},
		),

		forcedFailTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "forced_fail_total",
				Help:      "Total number of rules failed because inference did not confirm them",
			},
		),

		repairStages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "repair_stages_total",
				Help:      "Total number of parsed responses by repair stage",
			},
			[]string{"stage"},
		),

		unrepairable: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "unrepairable_total",
				Help:      "Total number of backend responses that could not be parsed",
			},
		),

		mode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "output_mode",
				Help:      "Negotiated structured output mode (1=selected)",
			},
			[]string{"mode"},
		),
	}

	registry.MustRegister(
		am.auditsTotal,
		am.auditDuration,
		am.chunksTotal,
		am.escalationsTotal,
		am.forcedFailTotal,
		am.repairStages,
		am.unrepairable,
		am.mode,
	)

	return am
}

// RecordAudit records a completed audit.
func (am *AuditMetrics) RecordAudit(mode string, duration time.Duration, forced int) {
	am.auditsTotal.WithLabelValues(mode).Inc()
	am.auditDuration.Observe(duration.Seconds())
	if forced > 0 {
		am.forcedFailTotal.Add(float64(forced))
	}
}

// RecordChunk records a chunk's coverage outcome.
func (am *AuditMetrics) RecordChunk(outcome string) {
	am.chunksTotal.WithLabelValues(outcome).Inc()
}

// RecordEscalation records one escalation.
func (am *AuditMetrics) RecordEscalation() {
	am.escalationsTotal.Inc()
}

// RecordRepairStage records the stage that parsed a response.
func (am *AuditMetrics) RecordRepairStage(stage string) {
	am.repairStages.WithLabelValues(stage).Inc()
}

// RecordUnrepairable records an unparseable response.
func (am *AuditMetrics) RecordUnrepairable() {
	am.unrepairable.Inc()
}

// SetMode sets the selected mode to 1 and every other known mode to 0.
func (am *AuditMetrics) SetMode(mode string) {
	for _, m := range modes {
		value := 0.0
		if m == mode {
			value = 1
		}
		am.mode.WithLabelValues(m).Set(value)
	}
}
