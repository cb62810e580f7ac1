package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyBatch is returned when a batch has no routes.
	ErrEmptyBatch = errors.New("batch has no routes")

	// ErrAlreadyRunning is returned by Start while a previous run of the
	// same Engine has not stopped.
	ErrAlreadyRunning = errors.New("engine is already running")
)

// MissingFieldError reports a route in a batch that lacks a required field.
// It is raised before any route is compiled.
type MissingFieldError struct {
	// RouteIndex is the position of the route in the batch.
	RouteIndex int

	// RouteID is the route uuid, or its start electrode when it has none.
	RouteID string

	// Field is "start" or "path".
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	if e.RouteID != "" {
		return fmt.Sprintf("route %d (%s): missing %s", e.RouteIndex, e.RouteID, e.Field)
	}
	return fmt.Sprintf("route %d: missing %s", e.RouteIndex, e.Field)
}

// IsMissingField returns true if the error is a MissingFieldError.
// Uses errors.As to handle wrapped errors.
func IsMissingField(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}

// PublishError wraps a publisher failure. The run stops at the failing step.
type PublishError struct {
	RunID string
	Seq   int64
	Err   error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish frame %d of run %s: %v", e.Seq, e.RunID, e.Err)
}

// Unwrap returns the publisher error.
func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsPublishError returns true if the error is a PublishError.
func IsPublishError(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe)
}
