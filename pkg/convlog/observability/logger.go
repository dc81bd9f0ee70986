// Package observability provides logging, metrics and tracing for convlog.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Every helper accepts a nil logger, and every recorder has a no-op
// implementation, so components work without any of it configured.
package observability

import (
	"log/slog"

	"github.com/randalmurphal/convlog/pkg/convlog"
)

// EnrichLogger returns a logger tagged with the listener name.
func EnrichLogger(logger *slog.Logger, listener string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("listener", listener))
}

// LogNotification logs receipt of a notification batch.
func LogNotification(logger *slog.Logger, channel convlog.Channel, size int) {
	if logger == nil {
		return
	}
	logger.Debug("notification received",
		slog.String("channel", channel.String()),
		slog.Int("utterances", size),
	)
}

// LogNotificationError logs a listener failing to process a notification.
func LogNotificationError(logger *slog.Logger, channel convlog.Channel, err error) {
	if logger == nil {
		return
	}
	logger.Error("notification failed",
		slog.String("channel", channel.String()),
		slog.String("error", err.Error()),
	)
}

// LogEmptyBatch logs an OUTPUT batch that carried no utterances.
func LogEmptyBatch(logger *slog.Logger, channel convlog.Channel) {
	if logger == nil {
		return
	}
	logger.Debug("empty batch ignored",
		slog.String("channel", channel.String()),
	)
}

// LogDuplicateOutput logs an OUTPUT replacing a response that was still
// waiting for its score.
func LogDuplicateOutput(logger *slog.Logger, contextID, conversationID string) {
	if logger == nil {
		return
	}
	logger.Warn("pending response overwritten",
		slog.String("context_id", contextID),
		slog.String("conversation_id", conversationID),
	)
}

// LogUnmatchedScore logs a score with no pending response.
func LogUnmatchedScore(logger *slog.Logger, contextID, conversationID string) {
	if logger == nil {
		return
	}
	logger.Debug("score without pending response",
		slog.String("context_id", contextID),
		slog.String("conversation_id", conversationID),
	)
}

// LogScoreMatched logs a response joined with its score.
func LogScoreMatched(logger *slog.Logger, contextID, conversationID string) {
	if logger == nil {
		return
	}
	logger.Debug("score matched",
		slog.String("context_id", contextID),
		slog.String("conversation_id", conversationID),
	)
}

// LogPendingRestored logs a pending response put back after its log write
// failed.
func LogPendingRestored(logger *slog.Logger, contextID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("pending response restored after write failure",
		slog.String("context_id", contextID),
		slog.String("error", err.Error()),
	)
}

// LogPendingExpired logs pending responses evicted for age.
func LogPendingExpired(logger *slog.Logger, count, remaining int) {
	if logger == nil {
		return
	}
	logger.Info("pending responses expired",
		slog.Int("expired", count),
		slog.Int("remaining", remaining),
	)
}

// LogContextRequested logs a new context request.
func LogContextRequested(logger *slog.Logger, id string, queued int) {
	if logger == nil {
		return
	}
	logger.Debug("context requested",
		slog.String("context_id", id),
		slog.Int("queued", queued),
	)
}
