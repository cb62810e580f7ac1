package testutil

import (
	"context"
	"sync"
	"time"
)

// VirtualClock is a deterministic engine clock: Sleep returns immediately
// after advancing virtual time.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration

	cancelAfter int
	cancel      context.CancelFunc
}

// NewVirtualClock creates a clock at virtual time 0.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// CancelAfter makes the clock call cancel when Sleep is entered for the
// (n+1)-th time, so exactly n steps complete before the run observes the
// cancellation. n <= 0 disables the hook.
func (c *VirtualClock) CancelAfter(n int, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelAfter = n
	c.cancel = cancel
}

// Sleep advances virtual time by d unless ctx is already done.
func (c *VirtualClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	cancel := c.cancel
	if c.cancelAfter > 0 && len(c.sleeps) >= c.cancelAfter {
		c.cancel = nil
	} else {
		cancel = nil
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	c.sleeps = append(c.sleeps, d)
	return nil
}

// Now returns the total virtual time slept.
func (c *VirtualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleeps returns the number of completed sleeps.
func (c *VirtualClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleeps)
}

// Durations returns a copy of every completed sleep duration.
func (c *VirtualClock) Durations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
