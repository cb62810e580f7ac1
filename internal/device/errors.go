package device

import (
	"errors"
	"fmt"

	"github.com/roach88/droproute/internal/ir"
)

// GraphResolutionError reports that a route path cannot be resolved on the
// device topology, e.g. a move off the device edge.
type GraphResolutionError struct {
	// RouteID is the route uuid, or its start electrode when unset.
	RouteID string

	// Step is the index into Route.Path that failed, or -1 for route-level
	// failures such as an unknown start.
	Step int

	// From is the electrode the failing move started from.
	From ir.ElectrodeID

	// Move is the directional step that failed (empty for id paths).
	Move string

	Message string
}

// Error implements the error interface.
func (e *GraphResolutionError) Error() string {
	if e.Move != "" {
		return fmt.Sprintf("route %s: step %d: cannot move %s from %s: %s", e.RouteID, e.Step, e.Move, e.From, e.Message)
	}
	if e.Step >= 0 {
		return fmt.Sprintf("route %s: step %d: %s: %s", e.RouteID, e.Step, e.From, e.Message)
	}
	return fmt.Sprintf("route %s: %s: %s", e.RouteID, e.From, e.Message)
}

// IsGraphResolution returns true if err is or wraps a GraphResolutionError.
func IsGraphResolution(err error) bool {
	var ge *GraphResolutionError
	return errors.As(err, &ge)
}
