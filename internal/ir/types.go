package ir

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// ElectrodeID identifies one addressable electrode on a device.
type ElectrodeID string

// NormalizeID returns the NFC form of an electrode identifier.
// Device topologies and routes are normalized at load time so that visually
// identical ids written with different Unicode compositions compare equal.
func NormalizeID(s string) ElectrodeID {
	return ElectrodeID(norm.NFC.String(s))
}

// Direction is a single directional move on the device grid.
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Directions lists every valid move in a stable order.
var Directions = []Direction{DirUp, DirDown, DirLeft, DirRight}

// IsDirection reports whether s names a directional move.
func IsDirection(s string) bool {
	switch Direction(s) {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

// Route is a declarative path of electrode moves.
// A route is immutable for the duration of one compile-and-execute cycle.
type Route struct {
	UUID  string      `json:"uuid,omitempty"`
	Start ElectrodeID `json:"start"`

	// Path holds directional steps ("up", "down", ...) or already-resolved
	// electrode ids.
	Path []string `json:"path"`

	TransitionDurationMs int64   `json:"transition_duration_ms"`
	RepeatDurationSec    float64 `json:"repeat_duration_sec,omitempty"`
	RouteRepeats         int     `json:"route_repeats,omitempty"`
	TrailLength          int     `json:"trail_length"`
}

// Transition returns the per-step duration.
func (r Route) Transition() time.Duration {
	return time.Duration(r.TransitionDurationMs) * time.Millisecond
}

// Label identifies the route in diagnostics: its uuid when set, otherwise
// its start electrode.
func (r Route) Label() string {
	if r.UUID != "" {
		return r.UUID
	}
	return string(r.Start)
}

// CompiledPath is the fully expanded electrode sequence a route traverses.
type CompiledPath []ElectrodeID

// ActivationWindow is the half-open interval [OnMs, OffMs) during which an
// electrode is driven. OnMs may be negative; it is never clamped.
type ActivationWindow struct {
	ElectrodeID ElectrodeID `json:"electrode_id"`
	OnMs        int64       `json:"on_ms"`
	OffMs       int64       `json:"off_ms"`
	StepIndex   int         `json:"step_index"`
	RouteIndex  int         `json:"route_index"`
}

// On returns the window start as a duration from t=0.
func (w ActivationWindow) On() time.Duration {
	return time.Duration(w.OnMs) * time.Millisecond
}

// Off returns the window end as a duration from t=0.
func (w ActivationWindow) Off() time.Duration {
	return time.Duration(w.OffMs) * time.Millisecond
}

// ActiveAt reports whether the window covers t (on <= t < off).
func (w ActivationWindow) ActiveAt(t time.Duration) bool {
	return w.On() <= t && t < w.Off()
}

// Frame is one publication of the active electrode set.
type Frame struct {
	RunID  string        `json:"run_id"`
	Seq    int64         `json:"seq"`
	At     time.Duration `json:"at"`
	Active []ElectrodeID `json:"active"`
}
