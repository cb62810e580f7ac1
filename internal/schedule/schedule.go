// Package schedule converts compiled paths into activation windows and
// answers "which electrodes are driven at time t" over a merged batch.
package schedule

import (
	"time"

	"github.com/roach88/droproute/internal/ir"
)

// Windows computes the activation window of every step in path.
//
// For step i with transition T and trail length L:
//
//	on  = T * (i - L + 1)
//	off = T * (i + 1)
//
// so an electrode stays driven for L consecutive steps after it is reached.
// Windows are returned in path order. Windows is a pure function.
func Windows(route ir.Route, path ir.CompiledPath) []ir.ActivationWindow {
	out := make([]ir.ActivationWindow, len(path))
	t := route.TransitionDurationMs
	trail := int64(route.TrailLength)
	for i, id := range path {
		step := int64(i)
		out[i] = ir.ActivationWindow{
			ElectrodeID: id,
			OnMs:        t * (step - trail + 1),
			OffMs:       t * (step + 1),
			StepIndex:   i,
		}
	}
	return out
}

// Schedule is the ordered window set of one execution batch.
// Route order is preserved; windows are never sorted or merged across routes.
type Schedule []ir.ActivationWindow

// Merge concatenates per-route window lists into one schedule, stamping each
// window with the index of the part it came from.
func Merge(parts ...[]ir.ActivationWindow) Schedule {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(Schedule, 0, n)
	for routeIdx, p := range parts {
		for _, w := range p {
			w.RouteIndex = routeIdx
			out = append(out, w)
		}
	}
	return out
}

// At partitions the schedule at time t into windows that are active
// (on <= t < off) and windows that have not started yet (on > t).
// Windows that have already closed are in neither set.
func (s Schedule) At(t time.Duration) (active, remaining []ir.ActivationWindow) {
	for _, w := range s {
		switch {
		case w.ActiveAt(t):
			active = append(active, w)
		case w.On() > t:
			remaining = append(remaining, w)
		}
	}
	return active, remaining
}

// ActiveIDs returns the deduplicated electrode ids active at t, in order of
// first appearance in the schedule.
func (s Schedule) ActiveIDs(t time.Duration) []ir.ElectrodeID {
	active, _ := s.At(t)
	return DedupIDs(active)
}

// DedupIDs returns the distinct electrode ids of windows, first occurrence
// first.
func DedupIDs(windows []ir.ActivationWindow) []ir.ElectrodeID {
	seen := make(map[ir.ElectrodeID]struct{}, len(windows))
	ids := make([]ir.ElectrodeID, 0, len(windows))
	for _, w := range windows {
		if _, ok := seen[w.ElectrodeID]; ok {
			continue
		}
		seen[w.ElectrodeID] = struct{}{}
		ids = append(ids, w.ElectrodeID)
	}
	return ids
}

// End returns the latest off time in the schedule, or 0 when empty.
func (s Schedule) End() time.Duration {
	var end time.Duration
	for _, w := range s {
		if w.Off() > end {
			end = w.Off()
		}
	}
	return end
}

// Hash returns the content hash of the schedule.
func (s Schedule) Hash() (string, error) {
	return ir.ScheduleHash(s)
}
