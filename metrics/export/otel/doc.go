// Package otel publishes authcore metrics through OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per histogram bucket, all fed by a single
// callback that reads [authcore.Engine.MetricsSnapshot]. The caller owns
// the MeterProvider.
package otel
