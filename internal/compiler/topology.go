package compiler

import (
	"fmt"

	"github.com/roach88/droproute/internal/device"
	"github.com/roach88/droproute/internal/ir"
)

// TopologyWarning describes a suspicious but legal device declaration.
//
// Warnings are not errors: one-way links and islands can be intentional
// (e.g. reservoirs that are only ever entered).
type TopologyWarning struct {
	Electrode ir.ElectrodeID `json:"electrode"`
	Message   string         `json:"message"`
	Level     string         `json:"level"` // "warning" or "info"
}

var opposite = map[ir.Direction]ir.Direction{
	ir.DirUp:    ir.DirDown,
	ir.DirDown:  ir.DirUp,
	ir.DirLeft:  ir.DirRight,
	ir.DirRight: ir.DirLeft,
}

// AnalyzeDevice performs static checks on a device topology:
//   - one-way links (A up B, but B down is not A)
//   - electrodes with no neighbours at all
//   - more than one connected region
//
// Results are ordered by electrode id. A fully symmetric, connected device
// returns an empty list.
func AnalyzeDevice(d *device.Device) []TopologyWarning {
	warnings := []TopologyWarning{}
	ids := d.IDs()

	for _, id := range ids {
		adj, _ := d.Neighbours(id)
		if len(adj) == 0 && len(ids) > 1 {
			warnings = append(warnings, TopologyWarning{
				Electrode: id,
				Message:   "electrode has no neighbours",
				Level:     "warning",
			})
			continue
		}
		for _, dir := range ir.Directions {
			other, ok := adj[dir]
			if !ok {
				continue
			}
			back, ok := d.Neighbour(other, opposite[dir])
			if !ok || back != id {
				warnings = append(warnings, TopologyWarning{
					Electrode: id,
					Message:   fmt.Sprintf("one-way link: %s of %s is %s, but %s of %s is not %s", dir, id, other, opposite[dir], other, id),
					Level:     "info",
				})
			}
		}
	}

	if regions := countRegions(d, ids); regions > 1 {
		warnings = append(warnings, TopologyWarning{
			Message: fmt.Sprintf("device has %d disconnected regions", regions),
			Level:   "warning",
		})
	}

	return warnings
}

// countRegions counts connected components treating every link as
// undirected.
func countRegions(d *device.Device, ids []ir.ElectrodeID) int {
	undirected := make(map[ir.ElectrodeID][]ir.ElectrodeID, len(ids))
	for _, id := range ids {
		adj, _ := d.Neighbours(id)
		for _, other := range adj {
			undirected[id] = append(undirected[id], other)
			undirected[other] = append(undirected[other], id)
		}
	}

	seen := make(map[ir.ElectrodeID]bool, len(ids))
	regions := 0
	for _, id := range ids {
		if seen[id] {
			continue
		}
		regions++
		stack := []ir.ElectrodeID{id}
		seen[id] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, next := range undirected[cur] {
				if !seen[next] {
					seen[next] = true
					stack = append(stack, next)
				}
			}
		}
	}
	return regions
}
