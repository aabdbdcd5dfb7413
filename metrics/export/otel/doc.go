// Package otel bridges engine metrics to OpenTelemetry. [NewOTelExporter]
// registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket; a single callback reads
// [goCaptcha.Engine.MetricsSnapshot] on every collection.
//
// Callers own the MeterProvider.
package otel
