package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/droproute/internal/ir"
)

// Recorder writes a run log as the engine produces it. It satisfies both
// engine.Publisher and engine.StatusObserver.
//
// Status observers cannot fail a run, so write errors from StatusChanged
// are logged and kept for Err.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

// NewRecorder creates a Recorder on s. A nil logger uses slog.Default().
func NewRecorder(s *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, logger: logger}
}

// PublishActive stores frame. A write failure stops the run.
func (r *Recorder) PublishActive(ctx context.Context, frame ir.Frame) error {
	return r.store.WriteFrame(ctx, frame)
}

// StatusChanged opens the run record on running and closes it on stopped.
func (r *Recorder) StatusChanged(ctx context.Context, ev ir.StatusEvent) {
	var err error
	switch ev.Status {
	case ir.StatusRunning:
		err = r.store.BeginRun(ctx, ev)
	case ir.StatusStopped:
		err = r.store.FinishRun(ctx, ev)
	default:
		return
	}
	if err != nil {
		r.logger.Error("record status failed",
			"run_id", ev.RunID,
			"status", ev.Status,
			"error", err,
		)
		r.mu.Lock()
		r.err = errors.Join(r.err, err)
		r.mu.Unlock()
	}
}

// Err returns the status write errors seen so far, or nil.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
