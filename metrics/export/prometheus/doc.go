// Package prometheus renders engine metrics in the Prometheus text
// exposition format. Counters are named gocaptcha_*_total; the issue and
// verify latency histograms are gocaptcha_*_latency_seconds.
//
// The exporter does not touch any global registry; callers mount Handler
// wherever they serve /metrics.
package prometheus
