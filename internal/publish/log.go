package publish

import (
	"context"
	"log/slog"

	"github.com/roach88/droproute/internal/ir"
)

// Log writes frames at debug level and status changes at info level.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log publisher. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// PublishActive implements engine.Publisher. It never fails.
func (l *Log) PublishActive(ctx context.Context, frame ir.Frame) error {
	l.logger.DebugContext(ctx, "frame",
		"run_id", frame.RunID,
		"seq", frame.Seq,
		"at", frame.At,
		"active", frame.Active,
	)
	return nil
}

// StatusChanged implements engine.StatusObserver.
func (l *Log) StatusChanged(ctx context.Context, ev ir.StatusEvent) {
	attrs := []any{
		"run_id", ev.RunID,
		"status", ev.Status,
	}
	if ev.Status == ir.StatusStopped {
		attrs = append(attrs, "reason", ev.Reason, "frames", ev.Frames)
	}
	if ev.Error != "" {
		attrs = append(attrs, "error", ev.Error)
	}
	l.logger.InfoContext(ctx, "status changed", attrs...)
}
