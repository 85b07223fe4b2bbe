// Package telemetry groups the observability packages of the anarchy
// pipeline.
//
//   - logging: slog construction and per-frame context fields
//   - metrics: Prometheus collectors for frames, passes, sessions, settings
//   - tracing: OpenTelemetry frame and pass spans
package telemetry
