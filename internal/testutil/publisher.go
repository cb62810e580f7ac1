package testutil

import (
	"context"
	"sync"

	"github.com/roach88/droproute/internal/ir"
)

// RecordingPublisher keeps every published frame in memory.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingPublisher struct {
	mu     sync.Mutex
	frames []ir.Frame
	failAt int64
	err    error
}

// NewRecordingPublisher creates a publisher that accepts every frame.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// FailAt makes PublishActive return err for the frame with the given seq.
// Earlier frames are recorded; the failing frame is not.
func (p *RecordingPublisher) FailAt(seq int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAt = seq
	p.err = err
}

// PublishActive records frame.
func (p *RecordingPublisher) PublishActive(_ context.Context, frame ir.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAt > 0 && frame.Seq == p.failAt {
		return p.err
	}
	p.frames = append(p.frames, frame)
	return nil
}

// Frames returns a copy of the recorded frames in publish order.
func (p *RecordingPublisher) Frames() []ir.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ir.Frame, len(p.frames))
	copy(out, p.frames)
	return out
}

// StatusRecorder keeps every status event in memory.
type StatusRecorder struct {
	mu     sync.Mutex
	events []ir.StatusEvent
}

// StatusChanged records ev.
func (r *StatusRecorder) StatusChanged(_ context.Context, ev ir.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *StatusRecorder) Events() []ir.StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.StatusEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Statuses returns the sequence of recorded statuses.
func (r *StatusRecorder) Statuses() []ir.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Status, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Status
	}
	return out
}
