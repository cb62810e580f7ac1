package ir

import "time"

// Status is the execution state of an engine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// StopReason explains why a run left the running state.
type StopReason string

const (
	ReasonExhausted StopReason = "exhausted" // no windows left to start
	ReasonDeadline  StopReason = "deadline"
	ReasonCancelled StopReason = "cancelled"
	ReasonFailed    StopReason = "failed"
)

// StatusEvent is delivered to status observers on every transition.
// Plan fields are populated on both the running and the stopped event;
// Reason, Frames and Error only on stopped.
type StatusEvent struct {
	RunID        string        `json:"run_id"`
	Status       Status        `json:"status"`
	Routes       int           `json:"routes"`
	Windows      int           `json:"windows"`
	StepInterval time.Duration `json:"step_interval"`
	Deadline     time.Duration `json:"deadline"`
	ScheduleHash string        `json:"schedule_hash"`
	Reason       StopReason    `json:"reason,omitempty"`
	Frames       int64         `json:"frames,omitempty"`
	Error        string        `json:"error,omitempty"`
}
