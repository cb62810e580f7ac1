package harness

import "github.com/roach88/droproute/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held and the run
	// log verified.
	Pass bool `json:"pass"`

	// RunID is empty when the batch was rejected before a run started.
	RunID string `json:"run_id,omitempty"`

	Reason ir.StopReason `json:"reason,omitempty"`

	// Error is the run or plan error, if any.
	Error string `json:"error,omitempty"`

	// Frames are the frames accepted by the publisher, in Seq order.
	Frames []ir.Frame `json:"frames"`

	// StoredFrames is the number of frames found in the run log.
	StoredFrames int64 `json:"stored_frames"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Frames: []ir.Frame{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FinalActive returns the active set of the last frame, or nil when no
// frame was published.
func (r *Result) FinalActive() []ir.ElectrodeID {
	if len(r.Frames) == 0 {
		return nil
	}
	return r.Frames[len(r.Frames)-1].Active
}
