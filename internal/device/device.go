package device

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/droproute/internal/ir"
)

// Neighbours maps each direction to the adjacent electrode, if any.
type Neighbours map[ir.Direction]ir.ElectrodeID

// Device is an immutable electrode topology.
//
// Thread-safety: Device is read-only after construction and safe for
// concurrent use.
type Device struct {
	name       string
	electrodes map[ir.ElectrodeID]Neighbours
}

// New builds a device from a neighbour table. Ids are NFC normalized, and two
// keys that normalize to the same id are rejected. Every neighbour must itself
// be a declared electrode.
func New(name string, electrodes map[string]map[ir.Direction]string) (*Device, error) {
	d := &Device{
		name:       name,
		electrodes: make(map[ir.ElectrodeID]Neighbours, len(electrodes)),
	}
	// Sorted so that a collision always names the same pair of keys.
	raw := make(map[ir.ElectrodeID]string, len(electrodes))
	for _, id := range slices.Sorted(maps.Keys(electrodes)) {
		norm := ir.NormalizeID(id)
		if first, ok := raw[norm]; ok {
			return nil, fmt.Errorf("electrodes %q and %q are the same id %q after normalization", first, id, norm)
		}
		raw[norm] = id

		adj := electrodes[id]
		n := make(Neighbours, len(adj))
		for dir, other := range adj {
			if !ir.IsDirection(string(dir)) {
				return nil, fmt.Errorf("electrode %q: unknown direction %q", id, dir)
			}
			n[dir] = ir.NormalizeID(other)
		}
		d.electrodes[norm] = n
	}
	for id, adj := range d.electrodes {
		for dir, other := range adj {
			if _, ok := d.electrodes[other]; !ok {
				return nil, fmt.Errorf("electrode %q: %s neighbour %q is not declared", id, dir, other)
			}
		}
	}
	return d, nil
}

// NewGrid builds a rows x cols rectangular device with row 0 at the top.
// Electrodes are named "E<row*cols+col>".
func NewGrid(rows, cols int) *Device {
	d := &Device{
		name:       fmt.Sprintf("grid-%dx%d", rows, cols),
		electrodes: make(map[ir.ElectrodeID]Neighbours, rows*cols),
	}
	id := func(r, c int) ir.ElectrodeID {
		return ir.ElectrodeID(fmt.Sprintf("E%d", r*cols+c))
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			n := Neighbours{}
			if r > 0 {
				n[ir.DirUp] = id(r-1, c)
			}
			if r < rows-1 {
				n[ir.DirDown] = id(r+1, c)
			}
			if c > 0 {
				n[ir.DirLeft] = id(r, c-1)
			}
			if c < cols-1 {
				n[ir.DirRight] = id(r, c+1)
			}
			d.electrodes[id(r, c)] = n
		}
	}
	return d
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Len returns the number of electrodes.
func (d *Device) Len() int { return len(d.electrodes) }

// Has reports whether id is a declared electrode.
func (d *Device) Has(id ir.ElectrodeID) bool {
	_, ok := d.electrodes[id]
	return ok
}

// IDs returns all electrode ids in sorted order.
func (d *Device) IDs() []ir.ElectrodeID {
	ids := make([]ir.ElectrodeID, 0, len(d.electrodes))
	for id := range d.electrodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Neighbour returns the electrode adjacent to id in direction dir.
func (d *Device) Neighbour(id ir.ElectrodeID, dir ir.Direction) (ir.ElectrodeID, bool) {
	adj, ok := d.electrodes[id]
	if !ok {
		return "", false
	}
	next, ok := adj[dir]
	return next, ok
}

// Neighbours returns a copy of the neighbour table for id.
func (d *Device) Neighbours(id ir.ElectrodeID) (Neighbours, bool) {
	adj, ok := d.electrodes[id]
	if !ok {
		return nil, false
	}
	out := make(Neighbours, len(adj))
	for k, v := range adj {
		out[k] = v
	}
	return out, true
}
