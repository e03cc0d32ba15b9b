// Package metrics exposes scan counters and latency histograms for
// Prometheus. The scan orchestrator feeds a Recorder through hooks, and the
// HTTP server serves it at /metrics.
package metrics
