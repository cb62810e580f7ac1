package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/droproute/internal/ir"
)

// FrameSnapshot captures the published frames of a scenario execution.
// It serializes with canonical JSON for deterministic comparison.
type FrameSnapshot struct {
	ScenarioName string
	RunID        string
	Reason       ir.StopReason
	Error        string
	Frames       []ir.Frame
}

// NewFrameSnapshot builds the snapshot of result under name.
func NewFrameSnapshot(name string, result *Result) FrameSnapshot {
	return FrameSnapshot{
		ScenarioName: name,
		RunID:        result.RunID,
		Reason:       result.Reason,
		Error:        result.Error,
		Frames:       result.Frames,
	}
}

// toCanonicalMap converts the snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s FrameSnapshot) toCanonicalMap() map[string]any {
	frames := make([]any, len(s.Frames))
	for i, f := range s.Frames {
		frames[i] = ir.FrameValue(f)
	}

	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"frames":        frames,
	}
	if s.RunID != "" {
		m["run_id"] = s.RunID
	}
	if s.Reason != "" {
		m["reason"] = s.Reason
	}
	if s.Error != "" {
		m["error"] = s.Error
	}
	return m
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s FrameSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its frames against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so that callers can also check result.Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against the golden file
// named scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewFrameSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
