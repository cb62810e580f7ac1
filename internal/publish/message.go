package publish

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/droproute/internal/ir"
)

// Message types carried in the envelope.
const (
	TypeActive = "active"
	TypeStatus = "status"
)

// Message is the JSON envelope published on the bus and written by the
// json Writer. Frame fields are set for TypeActive, status fields for
// TypeStatus.
type Message struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`

	Seq    int64            `json:"seq,omitempty"`
	AtNs   int64            `json:"at_ns"`
	AtMs   int64            `json:"at_ms"`
	Active []ir.ElectrodeID `json:"active,omitempty"`

	Status         ir.Status     `json:"status,omitempty"`
	Reason         ir.StopReason `json:"reason,omitempty"`
	Routes         int           `json:"routes,omitempty"`
	Windows        int           `json:"windows,omitempty"`
	StepIntervalNs int64         `json:"step_interval_ns,omitempty"`
	DeadlineNs     int64         `json:"deadline_ns,omitempty"`
	ScheduleHash   string        `json:"schedule_hash,omitempty"`
	Frames         int64         `json:"frames,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// FrameMessage converts a frame to its envelope. Active is never null on
// the wire for a frame.
func FrameMessage(f ir.Frame) Message {
	active := f.Active
	if active == nil {
		active = []ir.ElectrodeID{}
	}
	return Message{
		Type:   TypeActive,
		RunID:  f.RunID,
		Seq:    f.Seq,
		AtNs:   int64(f.At),
		AtMs:   f.At.Milliseconds(),
		Active: active,
	}
}

// StatusMessage converts a status event to its envelope.
func StatusMessage(ev ir.StatusEvent) Message {
	return Message{
		Type:           TypeStatus,
		RunID:          ev.RunID,
		Status:         ev.Status,
		Reason:         ev.Reason,
		Routes:         ev.Routes,
		Windows:        ev.Windows,
		StepIntervalNs: int64(ev.StepInterval),
		DeadlineNs:     int64(ev.Deadline),
		ScheduleHash:   ev.ScheduleHash,
		Frames:         ev.Frames,
		Error:          ev.Error,
	}
}

// Encode marshals m as compact JSON.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses an envelope.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}
