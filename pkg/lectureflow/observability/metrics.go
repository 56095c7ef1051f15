package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records lectureflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordOperation records a graph operation with its duration and error status.
	RecordOperation(ctx context.Context, action string, duration time.Duration, err error)

	// RecordGatewayCall records a generation gateway round trip.
	RecordGatewayCall(ctx context.Context, provider, op string, duration time.Duration, tokens int, err error)

	// RecordSessionActive adjusts the active session gauge by delta (+1 / -1).
	RecordSessionActive(ctx context.Context, delta int)

	// RecordSnapshot records a session snapshot save.
	RecordSnapshot(ctx context.Context, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	operations     metric.Int64Counter
	opLatency      metric.Float64Histogram
	opErrors       metric.Int64Counter
	gatewayCalls   metric.Int64Counter
	gatewayLatency metric.Float64Histogram
	gatewayTokens  metric.Int64Counter
	activeSessions metric.Int64UpDownCounter
	snapshotSize   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("lectureflow")

	operations, err := meter.Int64Counter("lectureflow.op.count",
		metric.WithDescription("Number of graph operations"),
	)
	if err != nil {
		return nil, err
	}

	opLatency, err := meter.Float64Histogram("lectureflow.op.latency_ms",
		metric.WithDescription("Graph operation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	opErrors, err := meter.Int64Counter("lectureflow.op.errors",
		metric.WithDescription("Number of failed graph operations"),
	)
	if err != nil {
		return nil, err
	}

	gatewayCalls, err := meter.Int64Counter("lectureflow.gateway.calls",
		metric.WithDescription("Number of generation gateway calls"),
	)
	if err != nil {
		return nil, err
	}

	gatewayLatency, err := meter.Float64Histogram("lectureflow.gateway.latency_ms",
		metric.WithDescription("Generation gateway latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	gatewayTokens, err := meter.Int64Counter("lectureflow.gateway.tokens",
		metric.WithDescription("Tokens consumed by gateway calls"),
	)
	if err != nil {
		return nil, err
	}

	activeSessions, err := meter.Int64UpDownCounter("lectureflow.sessions.active",
		metric.WithDescription("Number of active sessions"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("lectureflow.snapshot.size_bytes",
		metric.WithDescription("Session snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		operations:     operations,
		opLatency:      opLatency,
		opErrors:       opErrors,
		gatewayCalls:   gatewayCalls,
		gatewayLatency: gatewayLatency,
		gatewayTokens:  gatewayTokens,
		activeSessions: activeSessions,
		snapshotSize:   snapshotSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordOperation records a graph operation.
func (m *otelMetrics) RecordOperation(ctx context.Context, action string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("action", action),
	}

	m.operations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.opLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.opErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordGatewayCall records a generation gateway round trip.
func (m *otelMetrics) RecordGatewayCall(ctx context.Context, provider, op string, duration time.Duration, tokens int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("op", op),
		attribute.Bool("success", err == nil),
	}

	m.gatewayCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gatewayLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if tokens > 0 {
		m.gatewayTokens.Add(ctx, int64(tokens), metric.WithAttributes(
			attribute.String("provider", provider),
		))
	}
}

// RecordSessionActive adjusts the active session gauge.
func (m *otelMetrics) RecordSessionActive(ctx context.Context, delta int) {
	m.activeSessions.Add(ctx, int64(delta))
}

// RecordSnapshot records a session snapshot save.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes)
}
