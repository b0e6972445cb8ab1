// Package otel bridges engine metrics into OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and
// Int64ObservableGauges per histogram bucket. A single callback reads
// [authguard.Engine.MetricsSnapshot] on each collection cycle.
//
// The package never owns the MeterProvider; callers supply the Meter and
// keep control of readers and exporters. It reads snapshots and never
// mutates engine state.
package otel
