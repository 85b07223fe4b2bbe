// Package tracing records OpenTelemetry spans for pipeline frames.
//
// Each frame produces a root "frame" span and one child span per pass,
// exported over OTLP gRPC. Sampling is parent-based on a trace ID ratio, so
// a sampled frame carries all of its passes.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.StartFrame(ctx, 12, "net", true)
//	defer span.End()
//
// When tracing is disabled New returns a noop tracer.
package tracing
