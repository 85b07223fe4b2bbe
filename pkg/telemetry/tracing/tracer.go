package tracing

import (
	"context"
	"errors"
	"fmt"

	"skyline-hq/anarchy/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "skyline-hq/anarchy"

// Attribute keys recorded on frame and pass spans.
const (
	AttrFrame   = "anarchy.frame"
	AttrTool    = "anarchy.tool"
	AttrApplies = "anarchy.applies"
	AttrPass    = "anarchy.pass"
	AttrPhase   = "anarchy.phase"
	AttrTouched = "anarchy.entities_touched"
)

// Tracer wraps the OpenTelemetry tracer used to record one span per frame
// and one child span per pass.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
}

// New creates a new Tracer with the given configuration.
//
// If tracing is disabled in the config, a noop tracer is returned.
// The tracer must be shut down when no longer needed:
//
//	defer tracer.Shutdown(context.Background())
func New(cfg *config.TracingConfig, version string) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}
	if !cfg.Enabled {
		return Noop(), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return NewWithExporter(cfg, version, sdktrace.WithBatcher(exporter))
}

// NewWithExporter builds an enabled tracer around a caller-supplied span
// processor option, e.g. sdktrace.WithSyncer for tests.
func NewWithExporter(cfg *config.TracingConfig, version string, processor sdktrace.TracerProviderOption) (*Tracer, error) {
	ratio := cfg.SampleRatio
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)

	return &Tracer{
		tracer:   provider.Tracer(instrumentationName),
		provider: provider,
		enabled:  true,
	}, nil
}

// Noop returns a tracer that records nothing.
func Noop() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// StartFrame opens the root span for one frame.
func (t *Tracer) StartFrame(ctx context.Context, number uint64, tool string, applies bool) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "frame",
		trace.WithAttributes(
			attribute.Int64(AttrFrame, int64(number)),
			attribute.String(AttrTool, tool),
			attribute.Bool(AttrApplies, applies),
		),
	)
}

// StartPass opens a child span for one pass.
func (t *Tracer) StartPass(ctx context.Context, pass, phase string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, pass,
		trace.WithAttributes(
			attribute.String(AttrPass, pass),
			attribute.String(AttrPhase, phase),
		),
	)
}

// Shutdown flushes any pending spans and shuts down the tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled returns whether tracing is enabled.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// TraceID returns the trace ID from the context as a string.
// Returns empty string if no trace context exists.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SetStatus sets the span status based on an error and records it.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
