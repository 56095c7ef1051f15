package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordOperation does nothing.
func (NoopMetrics) RecordOperation(_ context.Context, _ string, _ time.Duration, _ error) {}

// RecordGatewayCall does nothing.
func (NoopMetrics) RecordGatewayCall(_ context.Context, _, _ string, _ time.Duration, _ int, _ error) {
}

// RecordSessionActive does nothing.
func (NoopMetrics) RecordSessionActive(_ context.Context, _ int) {}

// RecordSnapshot does nothing.
func (NoopMetrics) RecordSnapshot(_ context.Context, _ int64) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartSessionSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSessionSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartOperationSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartOperationSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartGatewaySpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartGatewaySpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}
