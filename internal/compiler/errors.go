package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// InvalidRouteError reports a route that cannot be compiled: a missing start
// or path, or timing parameters that make the repeat computation undefined.
type InvalidRouteError struct {
	RouteID string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InvalidRouteError) Error() string {
	return fmt.Sprintf("invalid route %s: %s: %s", e.RouteID, e.Field, e.Message)
}

// IsInvalidRoute returns true if err is or wraps an InvalidRouteError.
func IsInvalidRoute(err error) bool {
	var ie *InvalidRouteError
	return errors.As(err, &ie)
}

// CompileError reports a malformed protocol file value, with its CUE
// position when known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
