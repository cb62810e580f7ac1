package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/droproute/internal/compiler"
	"github.com/roach88/droproute/internal/device"
	"github.com/roach88/droproute/internal/ir"
)

// Scenario defines a conformance scenario: a device, a batch of routes, and
// assertions over the frames the engine publishes for them.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Device is the inline device topology.
	Device DeviceSpec `yaml:"device"`

	// Routes is the batch, in order.
	Routes []RouteSpec `yaml:"routes"`

	// CancelAfterSteps cancels the run once this many frames were published.
	// Zero runs to completion.
	CancelAfterSteps int `yaml:"cancel_after_steps,omitempty"`

	// FailAtStep makes publishing of frame FailAtStep fail. Zero disables.
	FailAtStep int64 `yaml:"fail_at_step,omitempty"`

	// RunID is a fixed run id for deterministic golden files.
	// Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Assertions validate the published frames and the stop reason.
	Assertions []Assertion `yaml:"assertions"`
}

// DeviceSpec declares either a rectangular grid or an explicit neighbour
// table keyed by electrode id.
type DeviceSpec struct {
	Grid       *GridSpec                    `yaml:"grid,omitempty"`
	Name       string                       `yaml:"name,omitempty"`
	Electrodes map[string]map[string]string `yaml:"electrodes,omitempty"`
}

// GridSpec is a rows x cols grid with ids E0..E(rows*cols-1).
type GridSpec struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// RouteSpec is the YAML form of ir.Route.
type RouteSpec struct {
	UUID                 string   `yaml:"uuid,omitempty"`
	Start                string   `yaml:"start"`
	Path                 []string `yaml:"path"`
	TransitionDurationMs int64    `yaml:"transition_duration_ms"`
	RepeatDurationSec    float64  `yaml:"repeat_duration_sec,omitempty"`
	RouteRepeats         int      `yaml:"route_repeats,omitempty"`

	// TrailLength defaults to 1 when omitted.
	TrailLength *int `yaml:"trail_length,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of published frames (frame_count).
	Count *int `yaml:"count,omitempty"`

	// Seq selects a frame by sequence number (active_at).
	Seq int64 `yaml:"seq,omitempty"`

	// At selects a frame by schedule time, e.g. "150ms" (active_at).
	At string `yaml:"at,omitempty"`

	// Active is the expected active set, in publication order
	// (active_at, final_active).
	Active []string `yaml:"active,omitempty"`

	// Reason is the expected stop reason (reason).
	Reason string `yaml:"reason,omitempty"`

	// Contains is a substring of the expected error (error).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertFrameCount  = "frame_count"
	AssertActiveAt    = "active_at"
	AssertFinalActive = "final_active"
	AssertReason      = "reason"
	AssertError       = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Route contents are deliberately not checked: malformed routes are
// scenarios for the engine's own error reporting.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Device.Grid == nil && len(s.Device.Electrodes) == 0 {
		return fmt.Errorf("device needs a grid or electrodes")
	}
	if s.Device.Grid != nil && len(s.Device.Electrodes) > 0 {
		return fmt.Errorf("device cannot declare both grid and electrodes")
	}
	if s.CancelAfterSteps < 0 {
		return fmt.Errorf("cancel_after_steps must be non-negative")
	}
	if s.FailAtStep < 0 {
		return fmt.Errorf("fail_at_step must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFrameCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for frame_count", index)
		}
	case AssertActiveAt:
		if (a.Seq == 0) == (a.At == "") {
			return fmt.Errorf("assertions[%d]: exactly one of seq or at is required for active_at", index)
		}
		if a.At != "" {
			if _, err := time.ParseDuration(a.At); err != nil {
				return fmt.Errorf("assertions[%d]: invalid at %q: %w", index, a.At, err)
			}
		}
	case AssertFinalActive:
	case AssertReason:
		switch ir.StopReason(a.Reason) {
		case ir.ReasonExhausted, ir.ReasonDeadline, ir.ReasonCancelled, ir.ReasonFailed:
		default:
			return fmt.Errorf("assertions[%d]: unknown reason %q", index, a.Reason)
		}
	case AssertError:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// BuildDevice constructs the scenario device.
func (d DeviceSpec) BuildDevice() (*device.Device, error) {
	if d.Grid != nil {
		if d.Grid.Rows <= 0 || d.Grid.Cols <= 0 {
			return nil, fmt.Errorf("grid needs positive rows and cols, got %dx%d", d.Grid.Rows, d.Grid.Cols)
		}
		return device.NewGrid(d.Grid.Rows, d.Grid.Cols), nil
	}

	table := make(map[string]map[ir.Direction]string, len(d.Electrodes))
	for id, adj := range d.Electrodes {
		dirs := make(map[ir.Direction]string, len(adj))
		for dir, other := range adj {
			dirs[ir.Direction(dir)] = other
		}
		table[id] = dirs
	}
	return device.New(d.Name, table)
}

// Batch converts the scenario routes to engine routes, in order.
func (s *Scenario) Batch() []ir.Route {
	batch := make([]ir.Route, len(s.Routes))
	for i, r := range s.Routes {
		trail := compiler.DefaultTrailLength
		if r.TrailLength != nil {
			trail = *r.TrailLength
		}
		batch[i] = ir.Route{
			UUID:                 r.UUID,
			Start:                ir.NormalizeID(r.Start),
			Path:                 r.Path,
			TransitionDurationMs: r.TransitionDurationMs,
			RepeatDurationSec:    r.RepeatDurationSec,
			RouteRepeats:         r.RouteRepeats,
			TrailLength:          trail,
		}
	}
	return batch
}
