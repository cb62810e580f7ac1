package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/droproute/internal/ir"
)

func intPtr(n int) *int { return &n }

func twoRouteScenario() *Scenario {
	return &Scenario{
		Name:        "two_routes_inline",
		Description: "inline copy of testdata two_routes",
		RunID:       "run-inline",
		Device:      DeviceSpec{Grid: &GridSpec{Rows: 1, Cols: 5}},
		Routes: []RouteSpec{
			{UUID: "fast", Start: "E0", Path: []string{"right", "right"}, TransitionDurationMs: 100},
			{UUID: "slow", Start: "E4", Path: []string{"left"}, TransitionDurationMs: 200},
		},
		Assertions: []Assertion{
			{Type: AssertFrameCount, Count: intPtr(5)},
			{Type: AssertReason, Reason: "exhausted"},
		},
	}
}

func TestRun_PassingScenario(t *testing.T) {
	result, err := Run(twoRouteScenario())
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "run-inline", result.RunID)
	assert.Equal(t, ir.ReasonExhausted, result.Reason)
	assert.Equal(t, int64(5), result.StoredFrames)
	assert.Equal(t, []ir.ElectrodeID{"E2", "E3"}, result.FinalActive())
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(twoRouteScenario())
	require.NoError(t, err)
	second, err := Run(twoRouteScenario())
	require.NoError(t, err)

	a, err := NewFrameSnapshot("x", first).MarshalCanonical()
	require.NoError(t, err)
	b, err := NewFrameSnapshot("x", second).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_FailingAssertion(t *testing.T) {
	s := twoRouteScenario()
	s.Assertions = []Assertion{
		{Type: AssertFrameCount, Count: intPtr(4)},
		{Type: AssertFinalActive, Active: []string{"E3", "E2"}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Expected: 4 frame(s)")
	assert.Contains(t, result.Errors[0], "Actual: 5 frame(s)")
	assert.Contains(t, result.Errors[1], "final_active")
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	s := twoRouteScenario()
	s.Routes[1].Path = []string{"down"}
	s.Assertions = []Assertion{{Type: AssertFrameCount, Count: intPtr(0)}}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Empty(t, result.RunID, "batch rejected before running")
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Contains(t, result.Error, "cannot move down from E4")
}

func TestRun_MissingPathIsReported(t *testing.T) {
	s := twoRouteScenario()
	s.Routes[0].Path = nil
	s.Assertions = []Assertion{{Type: AssertError, Contains: "missing path"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Frames)
}

func TestRun_ErrorAssertionWithoutError(t *testing.T) {
	s := twoRouteScenario()
	s.Assertions = []Assertion{{Type: AssertError}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "Actual: no error")
}

func TestRun_Cancel(t *testing.T) {
	s := twoRouteScenario()
	s.CancelAfterSteps = 3
	s.Assertions = []Assertion{
		{Type: AssertFrameCount, Count: intPtr(3)},
		{Type: AssertReason, Reason: "cancelled"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(3), result.StoredFrames)
	assert.Equal(t, "context canceled", result.Error)
}

func TestRun_FailAtStep(t *testing.T) {
	s := twoRouteScenario()
	s.FailAtStep = 1
	s.Assertions = []Assertion{
		{Type: AssertFrameCount, Count: intPtr(0)},
		{Type: AssertReason, Reason: "failed"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(0), result.StoredFrames)
	assert.Contains(t, result.Error, "injected publish failure")
}

func TestRun_BadDevice(t *testing.T) {
	s := twoRouteScenario()
	s.Device = DeviceSpec{Grid: &GridSpec{Rows: -1, Cols: 1}}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build device")
}

func TestEvaluateAssertions_ActiveAt(t *testing.T) {
	result := NewResult()
	result.Frames = []ir.Frame{
		{Seq: 1, At: 0, Active: []ir.ElectrodeID{"E0"}},
		{Seq: 2, At: 50_000_000, Active: []ir.ElectrodeID{"E0", "E1"}},
	}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertActiveAt, Seq: 2, Active: []string{"E0", "E1"}},
		{Type: AssertActiveAt, At: "50ms", Active: []string{"E0", "E1"}},
		{Type: AssertActiveAt, At: "0s", Active: []string{"E0"}},
	})
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{
		{Type: AssertActiveAt, Seq: 9, Active: []string{"E0"}},
		{Type: AssertActiveAt, Seq: 2, Active: []string{"E1", "E0"}},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "no such frame")
	assert.Contains(t, errs[1], "seq 2 active")
}

func TestEvaluateAssertions_FinalActiveNoFrames(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFinalActive, Active: []string{}}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no frames published")
}

func TestEvaluateAssertions_ReasonNoRun(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertReason, Reason: "exhausted"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no run started")
}

func TestScenarioFiles(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
