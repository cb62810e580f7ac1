package harness

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/droproute/internal/ir"
	"github.com/roach88/droproute/internal/publish"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Frames   []ir.Frame // Published frames for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFrames:\n")
	for _, f := range e.Frames {
		fmt.Fprintf(&buf, "  %s\n", publish.FormatFrame(f))
	}

	return buf.String()
}

func assertFrameCount(result *Result, a Assertion) error {
	if len(result.Frames) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFrameCount,
		Expected: fmt.Sprintf("%d frame(s)", *a.Count),
		Actual:   fmt.Sprintf("%d frame(s)", len(result.Frames)),
		Frames:   result.Frames,
	}
}

// assertActiveAt compares the active set of the frame selected by seq or
// schedule time. Order matters: it is first-activation order.
func assertActiveAt(result *Result, a Assertion) error {
	frame, label, ok := selectFrame(result.Frames, a)
	if !ok {
		return &AssertionError{
			Type:     AssertActiveAt,
			Expected: fmt.Sprintf("a frame at %s", label),
			Actual:   "no such frame",
			Frames:   result.Frames,
		}
	}
	return compareActive(AssertActiveAt, label, frame.Active, a.Active, result.Frames)
}

func assertFinalActive(result *Result, a Assertion) error {
	if len(result.Frames) == 0 {
		return &AssertionError{
			Type:     AssertFinalActive,
			Expected: fmt.Sprintf("final active %v", a.Active),
			Actual:   "no frames published",
		}
	}
	return compareActive(AssertFinalActive, "final frame", result.FinalActive(), a.Active, result.Frames)
}

func assertReason(result *Result, a Assertion) error {
	if string(result.Reason) == a.Reason {
		return nil
	}
	actual := string(result.Reason)
	if actual == "" {
		actual = "no run started"
	}
	return &AssertionError{
		Type:     AssertReason,
		Expected: a.Reason,
		Actual:   actual,
		Frames:   result.Frames,
	}
}

func assertError(result *Result, a Assertion) error {
	if result.Error != "" && strings.Contains(result.Error, a.Contains) {
		return nil
	}
	actual := result.Error
	if actual == "" {
		actual = "no error"
	}
	expected := "an error"
	if a.Contains != "" {
		expected = fmt.Sprintf("an error containing %q", a.Contains)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: expected,
		Actual:   actual,
		Frames:   result.Frames,
	}
}

func selectFrame(frames []ir.Frame, a Assertion) (ir.Frame, string, bool) {
	if a.Seq > 0 {
		label := fmt.Sprintf("seq %d", a.Seq)
		for _, f := range frames {
			if f.Seq == a.Seq {
				return f, label, true
			}
		}
		return ir.Frame{}, label, false
	}

	// Validated at load time.
	at, _ := time.ParseDuration(a.At)
	label := fmt.Sprintf("t=%v", at)
	for _, f := range frames {
		if f.At == at {
			return f, label, true
		}
	}
	return ir.Frame{}, label, false
}

func compareActive(typ, label string, actual []ir.ElectrodeID, expected []string, frames []ir.Frame) error {
	want := make([]ir.ElectrodeID, len(expected))
	for i, s := range expected {
		want[i] = ir.NormalizeID(s)
	}
	if slices.Equal(actual, want) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s active %v", label, want),
		Actual:   fmt.Sprintf("%s active %v", label, actual),
		Frames:   frames,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a list of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFrameCount:
			err = assertFrameCount(result, a)
		case AssertActiveAt:
			err = assertActiveAt(result, a)
		case AssertFinalActive:
			err = assertFinalActive(result, a)
		case AssertReason:
			err = assertReason(result, a)
		case AssertError:
			err = assertError(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}

	return errs
}
