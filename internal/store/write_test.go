package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/droproute/internal/ir"
)

func TestBeginRun_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.BeginRun(ctx, runningEvent("run-b")))
	require.NoError(t, s.BeginRun(ctx, runningEvent("run-a")))

	b, err := s.ReadRun(ctx, "run-b")
	require.NoError(t, err)
	a, err := s.ReadRun(ctx, "run-a")
	require.NoError(t, err)

	assert.Equal(t, int64(1), b.Seq)
	assert.Equal(t, int64(2), a.Seq)
	assert.Equal(t, ir.StatusRunning, b.Status)
	assert.Equal(t, 50*time.Millisecond, b.StepInterval)
	assert.Equal(t, 1200*time.Millisecond, b.Deadline)
	assert.Equal(t, "test-hash", b.ScheduleHash)
	assert.Equal(t, ir.EngineVersion, b.EngineVersion)
}

func TestBeginRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.BeginRun(ctx, runningEvent("run-1")))
	require.NoError(t, s.BeginRun(ctx, runningEvent("run-1")))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestBeginRun_EmptyID(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.BeginRun(t.Context(), ir.StatusEvent{}))
}

func TestWriteFrame_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteFrame(t.Context(), frame("ghost", 1, "E0"))
	assert.Error(t, err, "foreign key must reject frames of unknown runs")
}

func TestWriteFrame_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.BeginRun(ctx, runningEvent("run-1")))

	require.NoError(t, s.WriteFrame(ctx, frame("run-1", 1, "E0")))
	require.NoError(t, s.WriteFrame(ctx, frame("run-1", 1, "E9")))

	frames, err := s.ReadFrames(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []ir.ElectrodeID{"E0"}, frames[0].Active, "first write wins")
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.BeginRun(ctx, runningEvent("run-1")))

	ev := stoppedEvent("run-1", ir.ReasonFailed, 2)
	ev.Error = "publish frame 3 of run run-1: bus down"
	require.NoError(t, s.FinishRun(ctx, ev))

	rec, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, ir.StatusStopped, rec.Status)
	assert.Equal(t, ir.ReasonFailed, rec.Reason)
	assert.Equal(t, int64(2), rec.Frames)
	assert.Equal(t, ev.Error, rec.Error)
}

func TestFinishRun_Unknown(t *testing.T) {
	s := createTestStore(t)

	err := s.FinishRun(t.Context(), stoppedEvent("ghost", ir.ReasonExhausted, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(t.Context(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = s.LatestRun(t.Context())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
