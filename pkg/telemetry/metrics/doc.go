// Package metrics provides Prometheus metrics collection for medqc.
//
// # Metrics Categories
//
//   - Audit Metrics: audits by mode, audit duration, chunk outcomes,
//     escalations, forced FAILs, repair stages and the negotiated mode
//   - Backend Metrics: gateway calls by failure kind, latency, retries and
//     bytes on the wire
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.SetMode("schema")
//	collector.RecordCall("ollama", "none", 1, 2*time.Second, 4096, 512)
//
// medqc is a batch tool, so there is no scrape endpoint. After an audit the
// registry can be written for the node_exporter textfile collector:
//
//	collector.WriteToTextfile("/var/lib/node_exporter/medqc.prom")
//
// A nil *Collector accepts every call and records nothing.
package metrics
