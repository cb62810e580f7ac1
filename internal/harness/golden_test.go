package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/droproute/internal/ir"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"two_routes", "trail_overlap", "loop_repeats"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestFrameSnapshot_Canonical(t *testing.T) {
	result := NewResult()
	result.RunID = "r"
	result.Reason = ir.ReasonCancelled
	result.Error = "context canceled"
	result.Frames = []ir.Frame{{RunID: "r", Seq: 1, At: 0, Active: nil}}

	data, err := NewFrameSnapshot("snap", result).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"error":"context canceled","frames":[{"active":[],"at_ms":0,"seq":1}],"reason":"cancelled","run_id":"r","scenario_name":"snap"}`,
		string(data))
}

func TestFrameSnapshot_OmitsEmptyRun(t *testing.T) {
	data, err := NewFrameSnapshot("rejected", NewResult()).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"frames":[],"scenario_name":"rejected"}`, string(data))
}
