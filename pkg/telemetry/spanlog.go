package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanLogger is a span processor that writes every ended span to a slog
// logger at debug level. Failed spans are logged at error level.
type SpanLogger struct {
	logger *slog.Logger
}

var _ sdktrace.SpanProcessor = (*SpanLogger)(nil)

// LogSpans creates a SpanLogger.
func LogSpans(logger *slog.Logger) *SpanLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpanLogger{logger: logger}
}

// OnStart implements sdktrace.SpanProcessor.
func (p *SpanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd implements sdktrace.SpanProcessor.
func (p *SpanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	attrs := []any{
		"trace_id", s.SpanContext().TraceID().String(),
		"span_id", s.SpanContext().SpanID().String(),
		"duration", s.EndTime().Sub(s.StartTime()),
	}
	if s.Parent().IsValid() {
		attrs = append(attrs, "parent_id", s.Parent().SpanID().String())
	}
	for _, kv := range s.Attributes() {
		attrs = append(attrs, string(kv.Key), kv.Value.Emit())
	}

	level := slog.LevelDebug
	if s.Status().Code == codes.Error {
		level = slog.LevelError
		attrs = append(attrs, "status", s.Status().Description)
	}
	p.logger.Log(context.Background(), level, s.Name(), attrs...)
}

// Shutdown implements sdktrace.SpanProcessor.
func (p *SpanLogger) Shutdown(context.Context) error { return nil }

// ForceFlush implements sdktrace.SpanProcessor.
func (p *SpanLogger) ForceFlush(context.Context) error { return nil }
