package store

import (
	"time"

	"github.com/roach88/droproute/internal/ir"
)

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID         string
	Seq           int64
	Status        ir.Status
	Routes        int
	Windows       int
	StepInterval  time.Duration
	Deadline      time.Duration
	ScheduleHash  string
	Reason        ir.StopReason
	Error         string
	Frames        int64
	EngineVersion string
}
