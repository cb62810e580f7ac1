package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/droproute/internal/ir"
)

const runColumns = `run_id, seq, status, routes, windows, step_interval_ns, deadline_ns,
	schedule_hash, reason, error, frames, engine_version`

// ListRuns returns every run ordered by seq ASC, run_id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, run_id COLLATE BINARY ASC
	`)
}

// ReadRun retrieves a single run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE run_id = ?
	`, runID)

	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// LatestRun returns the run with the highest seq.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// ReadFrames returns the frames of a run ordered by seq ASC.
//
// Returns an empty slice (not nil) if the run has no frames.
func (s *Store) ReadFrames(ctx context.Context, runID string) ([]ir.Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, at_ns, active
		FROM frames
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []ir.Frame{}
	for rows.Next() {
		var (
			f      ir.Frame
			atNs   int64
			active string
		)
		if err := rows.Scan(&f.RunID, &f.Seq, &atNs, &active); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.At = time.Duration(atNs)
		if f.Active, err = unmarshalActive(active); err != nil {
			return nil, fmt.Errorf("frame %d: %w", f.Seq, err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a runs row. sql.ErrNoRows is returned unwrapped.
func scanRun(row scanner) (RunRecord, error) {
	var (
		rec              RunRecord
		status, reason   string
		intervalNs, dlNs int64
	)
	err := row.Scan(
		&rec.RunID,
		&rec.Seq,
		&status,
		&rec.Routes,
		&rec.Windows,
		&intervalNs,
		&dlNs,
		&rec.ScheduleHash,
		&reason,
		&rec.Error,
		&rec.Frames,
		&rec.EngineVersion,
	)
	if err == sql.ErrNoRows {
		return RunRecord{}, err
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Status = ir.Status(status)
	rec.Reason = ir.StopReason(reason)
	rec.StepInterval = time.Duration(intervalNs)
	rec.Deadline = time.Duration(dlNs)
	return rec, nil
}
