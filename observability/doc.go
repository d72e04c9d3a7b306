// Package observability provides OpenTelemetry tracing and metrics for
// containerkit.
//
// InitTracer and InitMeter stand up OTLP HTTP exporters for applications
// embedding the access layer. The access layer itself depends only on
// the otel API surface exposed here, so resolution works unchanged with
// the no-op global providers when no exporter is configured.
package observability
