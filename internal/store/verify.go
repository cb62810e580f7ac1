package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/droproute/internal/ir"
)

// RunCheck is the integrity report of one stored run.
type RunCheck struct {
	Run RunRecord

	// StoredFrames is the number of frame rows found.
	StoredFrames int64

	// Gaps lists seq numbers missing below the highest stored seq.
	Gaps []int64

	// HashMismatches lists seq numbers whose stored hash differs from the
	// recomputed one.
	HashMismatches []int64

	// Incomplete is true when the run never recorded a stopped status, as
	// after a crash.
	Incomplete bool
}

// OK reports whether the run is complete and its frames are intact.
func (c RunCheck) OK() bool {
	return !c.Incomplete &&
		len(c.Gaps) == 0 &&
		len(c.HashMismatches) == 0 &&
		c.StoredFrames == c.Run.Frames
}

// VerifyRun recomputes every frame hash of a run and checks that frame seq
// numbers are contiguous from 1 and match the recorded frame count.
func (s *Store) VerifyRun(ctx context.Context, runID string) (RunCheck, error) {
	rec, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunCheck{}, fmt.Errorf("verify run %s: %w", runID, err)
	}
	check := RunCheck{
		Run:        rec,
		Incomplete: rec.Status != ir.StatusStopped,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, at_ns, active, frame_hash
		FROM frames
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return RunCheck{}, fmt.Errorf("verify run %s: %w", runID, err)
	}
	defer rows.Close()

	var expect int64 = 1
	for rows.Next() {
		var (
			f      = ir.Frame{RunID: runID}
			atNs   int64
			active string
			stored string
		)
		if err := rows.Scan(&f.Seq, &atNs, &active, &stored); err != nil {
			return RunCheck{}, fmt.Errorf("scan frame: %w", err)
		}
		f.At = time.Duration(atNs)
		if f.Active, err = unmarshalActive(active); err != nil {
			return RunCheck{}, err
		}

		for ; expect < f.Seq; expect++ {
			check.Gaps = append(check.Gaps, expect)
		}
		expect = f.Seq + 1
		check.StoredFrames++

		hash, err := ir.FrameHash(f)
		if err != nil {
			return RunCheck{}, err
		}
		if hash != stored {
			check.HashMismatches = append(check.HashMismatches, f.Seq)
		}
	}
	if err := rows.Err(); err != nil {
		return RunCheck{}, fmt.Errorf("iterate frames: %w", err)
	}
	return check, nil
}

// FindIncompleteRuns returns runs still marked running. With one engine per
// process these are runs interrupted by a crash.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]RunRecord, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE status = ?
		ORDER BY seq ASC, run_id COLLATE BINARY ASC
	`, string(ir.StatusRunning))
}
