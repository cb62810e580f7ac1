package device

import (
	"github.com/roach88/droproute/internal/ir"
)

// Resolve expands a route into the ordered electrode ids it visits,
// starting with the start electrode.
//
// A path made only of direction words is walked move by move from the start.
// Any other path is taken as already-resolved electrode ids; the start is
// prepended when the path does not already begin with it. Mixing the two
// forms is rejected.
//
// Resolve is deterministic for a fixed route and topology.
func (d *Device) Resolve(route ir.Route) ([]ir.ElectrodeID, error) {
	start := ir.NormalizeID(string(route.Start))
	if !d.Has(start) {
		return nil, &GraphResolutionError{
			RouteID: route.Label(),
			Step:    -1,
			From:    start,
			Message: "start electrode is not on the device",
		}
	}

	directional, resolved := 0, 0
	for _, step := range route.Path {
		if ir.IsDirection(step) {
			directional++
		} else {
			resolved++
		}
	}
	if directional > 0 && resolved > 0 {
		return nil, &GraphResolutionError{
			RouteID: route.Label(),
			Step:    -1,
			From:    start,
			Message: "path mixes directional moves and electrode ids",
		}
	}

	if resolved > 0 {
		return d.resolveIDs(route, start)
	}
	return d.walk(route, start)
}

func (d *Device) walk(route ir.Route, start ir.ElectrodeID) ([]ir.ElectrodeID, error) {
	ids := make([]ir.ElectrodeID, 0, len(route.Path)+1)
	ids = append(ids, start)

	cur := start
	for i, step := range route.Path {
		next, ok := d.Neighbour(cur, ir.Direction(step))
		if !ok {
			return nil, &GraphResolutionError{
				RouteID: route.Label(),
				Step:    i,
				From:    cur,
				Move:    step,
				Message: "no neighbour in that direction",
			}
		}
		ids = append(ids, next)
		cur = next
	}
	return ids, nil
}

func (d *Device) resolveIDs(route ir.Route, start ir.ElectrodeID) ([]ir.ElectrodeID, error) {
	ids := make([]ir.ElectrodeID, 0, len(route.Path)+1)
	for i, raw := range route.Path {
		id := ir.NormalizeID(raw)
		if !d.Has(id) {
			return nil, &GraphResolutionError{
				RouteID: route.Label(),
				Step:    i,
				From:    id,
				Message: "electrode is not on the device",
			}
		}
		ids = append(ids, id)
	}
	if ids[0] != start {
		ids = append([]ir.ElectrodeID{start}, ids...)
	}
	return ids, nil
}
