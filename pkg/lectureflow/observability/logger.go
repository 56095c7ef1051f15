// Package observability provides structured logging, metrics, and tracing
// for lectureflow sessions.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds session context to a logger.
// Returns a new logger with session_id, action, and seq fields.
func EnrichLogger(logger *slog.Logger, sessionID, action string, seq uint64) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("action", action),
		slog.Uint64("seq", seq),
	)
}

// LogSessionStart logs the creation of a new session.
func LogSessionStart(logger *slog.Logger, sessionID, topic string) {
	if logger == nil {
		return
	}
	logger.Info("session started",
		slog.String("session_id", sessionID),
		slog.String("topic", topic),
	)
}

// LogSessionClose logs session teardown.
func LogSessionClose(logger *slog.Logger, sessionID string) {
	if logger == nil {
		return
	}
	logger.Info("session closed",
		slog.String("session_id", sessionID),
	)
}

// LogOperation logs a completed graph operation.
func LogOperation(logger *slog.Logger, action string, durationMs float64, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("operation failed",
			slog.String("action", action),
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("operation completed",
		slog.String("action", action),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogGatewayCall logs a generation gateway round trip.
func LogGatewayCall(logger *slog.Logger, provider, op string, durationMs float64, tokens int, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("gateway call failed",
			slog.String("provider", provider),
			slog.String("op", op),
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("gateway call completed",
		slog.String("provider", provider),
		slog.String("op", op),
		slog.Float64("duration_ms", durationMs),
		slog.Int("tokens", tokens),
	)
}

// LogStaleDiscard logs a superseded gateway completion being dropped.
// Diagnostics only; the user never sees these.
func LogStaleDiscard(logger *slog.Logger, sessionID, action string, seq, current uint64) {
	if logger == nil {
		return
	}
	logger.Debug("stale completion discarded",
		slog.String("session_id", sessionID),
		slog.String("action", action),
		slog.Uint64("seq", seq),
		slog.Uint64("current_seq", current),
	)
}

// LogSnapshotError logs a failed session persistence attempt (non-fatal).
func LogSnapshotError(logger *slog.Logger, sessionID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot save failed",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
