package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/droproute/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// runningEvent creates a running status event with minimal required fields.
func runningEvent(runID string) ir.StatusEvent {
	return ir.StatusEvent{
		RunID:        runID,
		Status:       ir.StatusRunning,
		Routes:       2,
		Windows:      5,
		StepInterval: 50 * time.Millisecond,
		Deadline:     1200 * time.Millisecond,
		ScheduleHash: "test-hash",
	}
}

func stoppedEvent(runID string, reason ir.StopReason, frames int64) ir.StatusEvent {
	ev := runningEvent(runID)
	ev.Status = ir.StatusStopped
	ev.Reason = reason
	ev.Frames = frames
	return ev
}

func frame(runID string, seq int64, active ...ir.ElectrodeID) ir.Frame {
	return ir.Frame{
		RunID:  runID,
		Seq:    seq,
		At:     time.Duration(seq-1) * 50 * time.Millisecond,
		Active: active,
	}
}
