package engine

import (
	"context"
	"time"
)

// Clock suspends the stepping loop between steps.
//
// Sleep returns ctx.Err() when the context is cancelled before d elapses.
// Implementations must not return nil for a cancelled context.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// WallClock sleeps in real time.
//
// It does not re-synchronize across steps: publication latency accumulates
// as drift.
type WallClock struct{}

// Sleep waits for d or until ctx is done.
func (WallClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
