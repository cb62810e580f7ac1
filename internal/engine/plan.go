package engine

import (
	"fmt"
	"time"

	"github.com/roach88/droproute/internal/compiler"
	"github.com/roach88/droproute/internal/ir"
	"github.com/roach88/droproute/internal/schedule"
)

// Plan is the fully compiled form of a batch, ready to be stepped.
type Plan struct {
	Routes   []ir.Route
	Paths    []ir.CompiledPath
	Schedule schedule.Schedule

	// StepInterval is min(transition) / len(batch).
	StepInterval time.Duration

	// Deadline is max(transition) * max(len(path)) * 2.
	Deadline time.Duration

	// Hash is the content hash of Schedule.
	Hash string
}

// Plan checks the batch preconditions, then compiles and windows every
// route in order. Any failure aborts the whole batch; compiler and device
// errors are returned unchanged.
func (e *Engine) Plan(batch []ir.Route) (*Plan, error) {
	return BuildPlan(batch, e.graph)
}

// BuildPlan is Plan without an Engine.
func BuildPlan(batch []ir.Route, graph compiler.Graph) (*Plan, error) {
	if err := CheckBatch(batch); err != nil {
		return nil, err
	}

	p := &Plan{
		Routes: batch,
		Paths:  make([]ir.CompiledPath, len(batch)),
	}
	parts := make([][]ir.ActivationWindow, len(batch))

	var minT, maxT int64
	maxLen := 0
	for i, route := range batch {
		path, err := compiler.Compile(route, graph)
		if err != nil {
			return nil, err
		}
		p.Paths[i] = path
		parts[i] = schedule.Windows(route, path)

		t := route.TransitionDurationMs
		if i == 0 || t < minT {
			minT = t
		}
		if t > maxT {
			maxT = t
		}
		if len(path) > maxLen {
			maxLen = len(path)
		}
	}

	p.Schedule = schedule.Merge(parts...)
	p.StepInterval = time.Duration(minT) * time.Millisecond / time.Duration(len(batch))
	// compiler.Compile bounds maxT and maxLen so that this cannot overflow.
	p.Deadline = time.Duration(maxT) * time.Millisecond * time.Duration(maxLen) * 2

	if p.StepInterval <= 0 {
		return nil, fmt.Errorf("step interval %v is not positive for %d routes", p.StepInterval, len(batch))
	}

	hash, err := p.Schedule.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash schedule: %w", err)
	}
	p.Hash = hash
	return p, nil
}

// CheckBatch verifies the batch is non-empty and every route carries a
// start and a path. It runs before anything is compiled or published.
func CheckBatch(batch []ir.Route) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	for i, route := range batch {
		if route.Start == "" {
			return &MissingFieldError{RouteIndex: i, RouteID: route.Label(), Field: "start"}
		}
		if len(route.Path) == 0 {
			return &MissingFieldError{RouteIndex: i, RouteID: route.Label(), Field: "path"}
		}
	}
	return nil
}

// MaxSteps is the upper bound on loop iterations for a plan:
// ceil(deadline / interval) + 1.
func (p *Plan) MaxSteps() int64 {
	if p.StepInterval <= 0 {
		return 0
	}
	n := int64(p.Deadline / p.StepInterval)
	if p.Deadline%p.StepInterval != 0 {
		n++
	}
	return n + 1
}
