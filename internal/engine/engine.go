package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/droproute/internal/compiler"
	"github.com/roach88/droproute/internal/ir"
	"github.com/roach88/droproute/internal/schedule"
)

// Publisher receives the active electrode set once per step.
// Calls for a run are made in Seq order from a single goroutine.
type Publisher interface {
	PublishActive(ctx context.Context, frame ir.Frame) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, frame ir.Frame) error

// PublishActive calls f(ctx, frame).
func (f PublisherFunc) PublishActive(ctx context.Context, frame ir.Frame) error {
	return f(ctx, frame)
}

// StatusObserver is notified of every status transition.
type StatusObserver interface {
	StatusChanged(ctx context.Context, ev ir.StatusEvent)
}

// StatusObserverFunc adapts a function to the StatusObserver interface.
type StatusObserverFunc func(ctx context.Context, ev ir.StatusEvent)

// StatusChanged calls f(ctx, ev).
func (f StatusObserverFunc) StatusChanged(ctx context.Context, ev ir.StatusEvent) {
	f(ctx, ev)
}

// RunIDGenerator generates unique run identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// Engine plays route batches back against a device.
//
// At most one run is active per Engine. Status is readable from any
// goroutine; the stepping loop of a run executes on its own goroutine and
// never runs two steps concurrently.
type Engine struct {
	graph     compiler.Graph
	publisher Publisher
	observers []StatusObserver
	clock     Clock
	runIDs    RunIDGenerator
	logger    *slog.Logger

	mu     sync.Mutex
	status ir.Status
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock. Tests inject a virtual clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithStatusObserver adds an observer. Observers are called in the order
// they were added.
func WithStatusObserver(o StatusObserver) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an idle Engine that resolves routes on graph and publishes
// active sets to pub.
func New(graph compiler.Graph, pub Publisher, opts ...Option) *Engine {
	e := &Engine{
		graph:     graph,
		publisher: pub,
		clock:     WallClock{},
		runIDs:    UUIDv7Generator{},
		logger:    slog.Default(),
		status:    ir.StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status returns the current execution status.
func (e *Engine) Status() ir.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Result summarizes a finished run.
type Result struct {
	RunID   string
	Reason  ir.StopReason
	Frames  int64
	Elapsed time.Duration
}

// Run is the handle of a started run.
type Run struct {
	ID   string
	Plan *Plan

	done   chan struct{}
	result Result
	err    error
}

// Done returns a channel that is closed exactly once, when the run has
// stopped and the engine status is stopped.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its result.
// The error is nil when the schedule was exhausted or the deadline reached,
// the context error when cancelled, and a *PublishError when publishing failed.
func (r *Run) Wait() (Result, error) {
	<-r.done
	return r.result, r.err
}

// Execute runs batch to completion and blocks until it stops.
func (e *Engine) Execute(ctx context.Context, batch []ir.Route) (Result, error) {
	run, err := e.Start(ctx, batch)
	if err != nil {
		return Result{}, err
	}
	return run.Wait()
}

// Start plans batch and launches its stepping loop.
//
// All preconditions are checked and every route is compiled before the
// status moves to running; a failure leaves the status unchanged and
// nothing is published. Start fails with ErrAlreadyRunning while another
// run of this Engine is active.
func (e *Engine) Start(ctx context.Context, batch []ir.Route) (*Run, error) {
	plan, err := e.Plan(batch)
	if err != nil {
		return nil, err
	}
	return e.StartPlan(ctx, plan)
}

// StartPlan launches the stepping loop for an already built plan.
func (e *Engine) StartPlan(ctx context.Context, plan *Plan) (*Run, error) {
	if plan == nil || plan.StepInterval <= 0 {
		return nil, errors.New("plan has no positive step interval")
	}

	e.mu.Lock()
	if e.status == ir.StatusRunning {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.status = ir.StatusRunning
	e.mu.Unlock()

	run := &Run{
		ID:   e.runIDs.Generate(),
		Plan: plan,
		done: make(chan struct{}),
	}

	e.logger.Info("run started",
		"run_id", run.ID,
		"routes", len(plan.Routes),
		"windows", len(plan.Schedule),
		"step_interval", plan.StepInterval,
		"deadline", plan.Deadline,
	)
	e.notify(ctx, ir.StatusEvent{
		RunID:        run.ID,
		Status:       ir.StatusRunning,
		Routes:       len(plan.Routes),
		Windows:      len(plan.Schedule),
		StepInterval: plan.StepInterval,
		Deadline:     plan.Deadline,
		ScheduleHash: plan.Hash,
	})

	go e.loop(ctx, run)
	return run, nil
}

// loop is the stepping loop. Sleep is its only suspension point.
func (e *Engine) loop(ctx context.Context, run *Run) {
	plan := run.Plan
	interval := plan.StepInterval

	var (
		t      time.Duration
		seq    int64
		frames int64
		slept  time.Duration
		reason ir.StopReason
		runErr error
	)

	for {
		if err := e.clock.Sleep(ctx, interval); err != nil {
			reason = ir.ReasonCancelled
			runErr = err
			break
		}
		slept += interval

		active, remaining := plan.Schedule.At(t)
		seq++
		frame := ir.Frame{
			RunID:  run.ID,
			Seq:    seq,
			At:     t,
			Active: schedule.DedupIDs(active),
		}
		if err := e.publisher.PublishActive(ctx, frame); err != nil {
			reason = ir.ReasonFailed
			runErr = &PublishError{RunID: run.ID, Seq: seq, Err: err}
			break
		}
		frames++

		if len(remaining) == 0 {
			reason = ir.ReasonExhausted
			break
		}
		if t+interval >= plan.Deadline {
			reason = ir.ReasonDeadline
			break
		}
		t += interval
	}

	e.finish(ctx, run, Result{
		RunID:   run.ID,
		Reason:  reason,
		Frames:  frames,
		Elapsed: slept,
	}, runErr)
}

// finish records the outcome, moves status to stopped, notifies observers
// and finally closes Done.
func (e *Engine) finish(ctx context.Context, run *Run, res Result, err error) {
	run.result = res
	run.err = err

	e.mu.Lock()
	e.status = ir.StatusStopped
	e.mu.Unlock()

	ev := ir.StatusEvent{
		RunID:        run.ID,
		Status:       ir.StatusStopped,
		Routes:       len(run.Plan.Routes),
		Windows:      len(run.Plan.Schedule),
		StepInterval: run.Plan.StepInterval,
		Deadline:     run.Plan.Deadline,
		ScheduleHash: run.Plan.Hash,
		Reason:       res.Reason,
		Frames:       res.Frames,
	}
	if err != nil {
		ev.Error = err.Error()
	}

	if err != nil && res.Reason == ir.ReasonFailed {
		e.logger.Error("run failed",
			"run_id", run.ID,
			"frames", res.Frames,
			"error", err,
		)
	} else {
		e.logger.Info("run stopped",
			"run_id", run.ID,
			"reason", res.Reason,
			"frames", res.Frames,
			"elapsed", res.Elapsed,
		)
	}

	// Observers still get the stopped event after cancellation.
	e.notify(context.WithoutCancel(ctx), ev)
	close(run.done)
}

func (e *Engine) notify(ctx context.Context, ev ir.StatusEvent) {
	for _, o := range e.observers {
		o.StatusChanged(ctx, ev)
	}
}
