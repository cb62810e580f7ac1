package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/droproute/internal/engine"
	"github.com/roach88/droproute/internal/publish"
	"github.com/roach88/droproute/internal/store"
	"github.com/roach88/droproute/internal/testutil"
)

// errInjected is returned by the publisher at Scenario.FailAtStep.
var errInjected = errors.New("injected publish failure")

// Run executes a scenario against the real engine and returns the result.
//
// Each scenario runs in a fresh in-memory database with a virtual clock and
// a fixed run id, so identical scenarios produce identical frames.
//
// Execution flow:
//  1. Build the device and batch
//  2. Execute the batch, recording frames in memory and in the run log
//  3. Verify the run log against the published frames
//  4. Evaluate assertions
//
// The returned error is reserved for harness failures (bad device, store
// errors). Engine errors are part of the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine and recorder logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	dev, err := scenario.Device.BuildDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to build device: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewVirtualClock()
	runIDs := testutil.NewFixedRunIDGenerator(scenario.RunID)
	mem := testutil.NewRecordingPublisher()
	if scenario.FailAtStep > 0 {
		mem.FailAt(scenario.FailAtStep, errInjected)
	}
	rec := store.NewRecorder(st, logger)

	eng := engine.New(dev, publish.Fanout{mem, rec},
		engine.WithClock(clock),
		engine.WithRunIDGenerator(runIDs),
		engine.WithStatusObserver(rec),
		engine.WithLogger(logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if scenario.CancelAfterSteps > 0 {
		clock.CancelAfter(scenario.CancelAfterSteps, cancel)
	}

	res, runErr := eng.Execute(ctx, scenario.Batch())

	result := NewResult()
	result.RunID = res.RunID
	result.Reason = res.Reason
	result.Frames = mem.Frames()
	if runErr != nil {
		result.Error = runErr.Error()
	}

	if res.RunID != "" {
		if err := verifyRunLog(st, result); err != nil {
			return nil, err
		}
		if err := rec.Err(); err != nil {
			result.AddError(fmt.Sprintf("run log recording failed: %v", err))
		}
	}

	if runErr != nil && !expectsError(scenario, runErr) {
		result.AddError(fmt.Sprintf("unexpected error: %v", runErr))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	logger.Info("scenario finished",
		"scenario", scenario.Name,
		"run_id", result.RunID,
		"reason", result.Reason,
		"frames", len(result.Frames),
		"pass", result.Pass,
	)
	return result, nil
}

// verifyRunLog checks that the run log holds exactly the published frames.
func verifyRunLog(st *store.Store, result *Result) error {
	ctx := context.Background()

	check, err := st.VerifyRun(ctx, result.RunID)
	if err != nil {
		return fmt.Errorf("failed to verify run log: %w", err)
	}
	result.StoredFrames = check.StoredFrames

	if !check.OK() {
		result.AddError(fmt.Sprintf("run log verification failed: gaps=%v hash_mismatches=%v incomplete=%v",
			check.Gaps, check.HashMismatches, check.Incomplete))
	}
	if check.StoredFrames != int64(len(result.Frames)) {
		result.AddError(fmt.Sprintf("run log holds %d frames, publisher accepted %d",
			check.StoredFrames, len(result.Frames)))
	}
	return nil
}

// expectsError reports whether runErr is an outcome the scenario asked for:
// an explicit error assertion, a requested cancellation, or an injected
// publish failure.
func expectsError(s *Scenario, runErr error) bool {
	for _, a := range s.Assertions {
		if a.Type == AssertError {
			return true
		}
	}
	if s.CancelAfterSteps > 0 && errors.Is(runErr, context.Canceled) {
		return true
	}
	if s.FailAtStep > 0 && errors.Is(runErr, errInjected) {
		return true
	}
	return false
}
