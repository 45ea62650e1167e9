package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/hookstore/pkg/hookstore"
)

// Default tracer name.
const defaultTracerName = "hookstore"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "hookstore").
	TracerName string

	// TracerProvider provides the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.TracerProvider = tp
	}
}

// Tracing is a hookstore.Observer that creates one span per update. Updates
// made from inside a trigger or subscriber become child spans of the update
// that notified them.
type Tracing struct {
	tracer trace.Tracer
}

// OpenTelemetry creates the tracing observer.
func OpenTelemetry(opts ...TracingOption) *Tracing {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{tracer: tp.Tracer(config.TracerName)}
}

// StoreCreated implements hookstore.Observer.
func (t *Tracing) StoreCreated(string, bool) {}

// UpdateStarted implements hookstore.Observer.
func (t *Tracing) UpdateStarted(ctx context.Context, info hookstore.UpdateInfo) (context.Context, func(hookstore.UpdateResult)) {
	ctx, span := t.tracer.Start(ctx, "hookstore."+string(info.Op),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("hookstore.store", info.Store),
			attribute.String("hookstore.op", string(info.Op)),
			attribute.Int("hookstore.depth", info.Depth),
		),
	)

	return ctx, func(res hookstore.UpdateResult) {
		span.SetAttributes(
			attribute.Bool("hookstore.fast_path", res.FastPath),
			attribute.Int("hookstore.buckets_notified", res.BucketsNotified),
			attribute.Int("hookstore.buckets_skipped", res.BucketsSkipped),
			attribute.Int("hookstore.triggers", res.Triggers),
			attribute.Int("hookstore.subscribers", res.Subscribers),
		)
		switch {
		case res.Panicked:
			span.SetStatus(codes.Error, "update panicked")
		case res.Failures > 0:
			span.SetStatus(codes.Error, "notification failed")
		default:
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// Misuse implements hookstore.Observer.
func (t *Tracing) Misuse(string, error) {}

// Failed implements hookstore.Observer. The failure is recorded on the span
// of the update that was notifying.
func (t *Tracing) Failed(ctx context.Context, store string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(
		attribute.String("hookstore.store", store),
		attribute.String("hookstore.code", errorCode(err)),
	))
}
