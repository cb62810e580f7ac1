package compiler

import (
	"fmt"
	"math"

	"github.com/roach88/droproute/internal/ir"
)

// Limits on route timing. With both at their maximum, a deadline of
// MaxTransitionDurationMs * MaxPathLength * 2 still fits in a time.Duration.
const (
	// MaxTransitionDurationMs is one hour.
	MaxTransitionDurationMs = 60 * 60 * 1000

	// MaxPathLength bounds the compiled path, the trail length and the
	// repeat count of a route.
	MaxPathLength = 1 << 20
)

// ValidateRoute checks the fields a route needs before it can be resolved
// and timed. It does not consult the device.
func ValidateRoute(route ir.Route) error {
	if route.Start == "" {
		return &InvalidRouteError{RouteID: route.Label(), Field: "start", Message: "start is required"}
	}
	if len(route.Path) == 0 {
		return &InvalidRouteError{RouteID: route.Label(), Field: "path", Message: "path is required"}
	}
	if route.TransitionDurationMs <= 0 {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "transitionDurationMs",
			Message: fmt.Sprintf("must be positive, got %d", route.TransitionDurationMs),
		}
	}
	if route.TransitionDurationMs > MaxTransitionDurationMs {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "transitionDurationMs",
			Message: fmt.Sprintf("must be at most %d, got %d", MaxTransitionDurationMs, route.TransitionDurationMs),
		}
	}
	if len(route.Path) > MaxPathLength {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "path",
			Message: fmt.Sprintf("has %d steps, at most %d allowed", len(route.Path), MaxPathLength),
		}
	}
	if route.TrailLength > MaxPathLength {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "trailLength",
			Message: fmt.Sprintf("must be at most %d, got %d", MaxPathLength, route.TrailLength),
		}
	}
	if math.IsNaN(route.RepeatDurationSec) || math.IsInf(route.RepeatDurationSec, 0) {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "repeatDurationSec",
			Message: fmt.Sprintf("must be finite, got %g", route.RepeatDurationSec),
		}
	}
	if route.RouteRepeats > MaxPathLength {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "routeRepeats",
			Message: fmt.Sprintf("must be at most %d, got %d", MaxPathLength, route.RouteRepeats),
		}
	}
	if route.TrailLength < 1 {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "trailLength",
			Message: fmt.Sprintf("must be at least 1, got %d", route.TrailLength),
		}
	}
	if route.RepeatDurationSec < 0 {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "repeatDurationSec",
			Message: fmt.Sprintf("must not be negative, got %g", route.RepeatDurationSec),
		}
	}
	if route.RouteRepeats < 0 {
		return &InvalidRouteError{
			RouteID: route.Label(),
			Field:   "routeRepeats",
			Message: fmt.Sprintf("must not be negative, got %d", route.RouteRepeats),
		}
	}
	return nil
}
