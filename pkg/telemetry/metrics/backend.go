package metrics

import (
	"time"

	"medqc-hq/medqc/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics tracks metrics related to the inference backend.
//
// Metrics:
//   - medqc_audit_backend_calls_total: Gateway calls by backend and failure kind
//   - medqc_audit_backend_latency_seconds: Gateway call latency
//   - medqc_audit_backend_retries_total: Extra attempts after a transient failure
//   - medqc_audit_backend_bytes_total: Bytes on the wire by direction
type BackendMetrics struct {
	callsTotal   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	retriesTotal *prometheus.CounterVec
	bytesTotal   *prometheus.CounterVec
}

// NewBackendMetrics creates and registers backend metrics with the provided registry.
func NewBackendMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_calls_total",
				Help:      "Total number of inference gateway calls",
			},
			[]string{"backend", "failure"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_latency_seconds",
				Help:      "Latency of inference gateway calls in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"backend"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_retries_total",
				Help:      "Total number of retried backend attempts",
			},
			[]string{"backend"},
		),

		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_bytes_total",
				Help:      "Total bytes exchanged with the backend",
			},
			[]string{"backend", "direction"},
		),
	}

	registry.MustRegister(
		bm.callsTotal,
		bm.latency,
		bm.retriesTotal,
		bm.bytesTotal,
	)

	return bm
}

// RecordCall records one gateway call.
func (bm *BackendMetrics) RecordCall(backend, failure string, latency time.Duration) {
	bm.callsTotal.WithLabelValues(backend, failure).Inc()
	bm.latency.WithLabelValues(backend).Observe(latency.Seconds())
}

// RecordRetries records extra attempts.
func (bm *BackendMetrics) RecordRetries(backend string, n int) {
	if n > 0 {
		bm.retriesTotal.WithLabelValues(backend).Add(float64(n))
	}
}

// RecordBytes records request and response sizes.
func (bm *BackendMetrics) RecordBytes(backend string, sent, received int64) {
	if sent > 0 {
		bm.bytesTotal.WithLabelValues(backend, "sent").Add(float64(sent))
	}
	if received > 0 {
		bm.bytesTotal.WithLabelValues(backend, "received").Add(float64(received))
	}
}
