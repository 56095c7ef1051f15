package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the lectureflow tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("lectureflow")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartSessionSpan starts a span covering session creation.
	StartSessionSpan(ctx context.Context, sessionID, topic string) (context.Context, trace.Span)

	// StartOperationSpan starts a span for one graph operation.
	StartOperationSpan(ctx context.Context, sessionID, action string) (context.Context, trace.Span)

	// StartGatewaySpan starts a span for a generation gateway call.
	// The gateway span should be a child of the operation span.
	StartGatewaySpan(ctx context.Context, provider, op string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartSessionSpan starts a span covering session creation.
func (m *otelSpanManager) StartSessionSpan(ctx context.Context, sessionID, topic string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lectureflow.session.start",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.topic", topic),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartOperationSpan starts a span for one graph operation.
func (m *otelSpanManager) StartOperationSpan(ctx context.Context, sessionID, action string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lectureflow.op."+action,
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("op.action", action),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartGatewaySpan starts a span for a generation gateway call.
func (m *otelSpanManager) StartGatewaySpan(ctx context.Context, provider, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lectureflow.gateway."+op,
		trace.WithAttributes(
			attribute.String("gateway.provider", provider),
			attribute.String("gateway.op", op),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
// Uses the global tracer; safe to call with no active span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
