package compiler

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/droproute/internal/ir"
)

// Graph resolves a route into the ordered electrode ids it visits.
// Implementations must be deterministic for a fixed route and topology.
// Implemented by *device.Device.
type Graph interface {
	Resolve(route ir.Route) ([]ir.ElectrodeID, error)
}

// Compile expands one route into its concrete, loop-aware electrode sequence.
//
// The route is resolved against g; resolution errors are returned unchanged.
// A route whose first and last resolved ids are equal is a closed loop and is
// repeated RepeatCount times. Any other route compiles to exactly the
// resolved sequence, even when repeat parameters are set.
//
// Fails with *InvalidRouteError when start or path is missing, or when the
// timing parameters are degenerate.
func Compile(route ir.Route, g Graph) (ir.CompiledPath, error) {
	if err := ValidateRoute(route); err != nil {
		return nil, err
	}

	ids, err := g.Resolve(route)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "path",
			Message: "path resolves to no electrodes",
		}
	}

	if len(ids) > MaxPathLength {
		return nil, &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "path",
			Message: fmt.Sprintf("resolves to %d electrodes, at most %d allowed", len(ids), MaxPathLength),
		}
	}

	if !IsClosedLoop(ids) {
		return ir.CompiledPath(slices.Clone(ids)), nil
	}

	repeats, err := RepeatCount(route, len(ids))
	if err != nil {
		return nil, err
	}
	if total := len(ids) * repeats; total > MaxPathLength {
		field := "repeatDurationSec"
		if repeats == route.RouteRepeats {
			field = "routeRepeats"
		}
		return nil, &InvalidRouteError{
			RouteID: route.Label(),
			Field:   field,
			Message: fmt.Sprintf("loop of %d repeated %d times is %d steps, at most %d allowed",
				len(ids), repeats, total, MaxPathLength),
		}
	}

	// Every copy is taken from the base cycle, never from the extended path.
	out := make(ir.CompiledPath, 0, len(ids)*repeats)
	for i := 0; i < repeats; i++ {
		out = append(out, ids...)
	}
	return out, nil
}

// IsClosedLoop reports whether a resolved path starts and ends on the same
// electrode.
func IsClosedLoop(ids []ir.ElectrodeID) bool {
	return len(ids) > 0 && ids[0] == ids[len(ids)-1]
}

// RepeatCount returns how many times a closed loop of cycleLen electrodes is
// traversed:
//
//	floor(repeatDurationSec*1000 / (transitionDurationMs*cycleLen) + 1)
//
// raised to RouteRepeats when that is larger. The result is at least 1 and
// at most MaxPathLength.
func RepeatCount(route ir.Route, cycleLen int) (int, error) {
	if route.TransitionDurationMs <= 0 {
		return 0, &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "transitionDurationMs",
			Message: fmt.Sprintf("must be positive, got %d", route.TransitionDurationMs),
		}
	}
	if cycleLen <= 0 {
		return 0, &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "path",
			Message: "loop length must be positive",
		}
	}

	// Round to whole microseconds so 0.6s is 600ms, not 599.999...
	repeatMs := math.Round(route.RepeatDurationSec*1e6) / 1e3
	cycleMs := float64(route.TransitionDurationMs) * float64(cycleLen)
	f := math.Floor(repeatMs/cycleMs + 1)
	// Checked before the conversion: an out of range float does not convert
	// to a meaningful int.
	if math.IsNaN(f) || f > MaxPathLength {
		return 0, &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "repeatDurationSec",
			Message: fmt.Sprintf("%gs repeats a %d step loop more than %d times", route.RepeatDurationSec, cycleLen, MaxPathLength),
		}
	}
	if route.RouteRepeats > MaxPathLength {
		return 0, &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "routeRepeats",
			Message: fmt.Sprintf("must be at most %d, got %d", MaxPathLength, route.RouteRepeats),
		}
	}
	if f < 1 {
		f = 1
	}
	n := int(f)

	if route.RouteRepeats > n {
		n = route.RouteRepeats
	}
	return n, nil
}
