// Package engine plays a batch of routes back as timed electrode activations.
//
// A run has two phases.
//
// Setup compiles every route on the device graph, converts each compiled
// path into activation windows and concatenates them in route order. The
// shared step interval is min(transition)/len(batch) so the fastest route is
// never under-sampled; the deadline is max(transition) * max(len(path)) * 2.
// Any failure here aborts the batch before anything is published.
//
// Stepping is an iterative loop over t = 0, interval, 2*interval, ...:
//
//  1. Clock.Sleep(interval), the only suspension point
//  2. partition the schedule into active (on <= t < off) and remaining (on > t)
//  3. publish the deduplicated active ids as a Frame
//  4. stop when nothing remains or t + interval >= deadline
//
// The loop therefore runs at most ceil(deadline/interval)+1 times. A publish
// error stops it and is returned; cancellation of the context is honored at
// every sleep.
//
// Status moves idle -> running -> stopped and is scoped to one Engine. A
// second Start while running is rejected with ErrAlreadyRunning.
package engine
