package store

import (
	"context"
	"fmt"

	"github.com/roach88/droproute/internal/ir"
)

// BeginRun inserts a run record from its running status event.
// The run is assigned the next logical seq. Uses ON CONFLICT(run_id) DO
// NOTHING for idempotency - a duplicate begin is silently ignored.
func (s *Store) BeginRun(ctx context.Context, ev ir.StatusEvent) error {
	if ev.RunID == "" {
		return fmt.Errorf("begin run: empty run id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, seq, status, routes, windows, step_interval_ns, deadline_ns, schedule_hash, engine_version)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?, ?
		FROM runs
		WHERE true
		ON CONFLICT(run_id) DO NOTHING
	`,
		ev.RunID,
		string(ir.StatusRunning),
		ev.Routes,
		ev.Windows,
		int64(ev.StepInterval),
		int64(ev.Deadline),
		ev.ScheduleHash,
		ir.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", ev.RunID, err)
	}
	return nil
}

// WriteFrame appends a published frame to its run.
// Uses ON CONFLICT DO NOTHING for idempotency on (run_id, seq).
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteFrame(ctx context.Context, f ir.Frame) error {
	active, err := marshalActive(f.Active)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	hash, err := ir.FrameHash(f)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO frames (run_id, seq, at_ns, active, frame_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		f.RunID,
		f.Seq,
		int64(f.At),
		active,
		hash,
	)
	if err != nil {
		return fmt.Errorf("write frame %d of run %s: %w", f.Seq, f.RunID, err)
	}
	return nil
}

// FinishRun records the terminal status event of a run.
func (s *Store) FinishRun(ctx context.Context, ev ir.StatusEvent) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, reason = ?, error = ?, frames = ?
		WHERE run_id = ?
	`,
		string(ev.Status),
		string(ev.Reason),
		ev.Error,
		ev.Frames,
		ev.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", ev.RunID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", ev.RunID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: run not found", ev.RunID)
	}
	return nil
}
