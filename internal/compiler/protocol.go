package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/droproute/internal/device"
	"github.com/roach88/droproute/internal/ir"
)

// DefaultTrailLength is used when a route does not declare trailLength.
const DefaultTrailLength = 1

// CompileRoute parses a CUE value into a Route.
//
// Only type errors are reported here. Missing fields are left at their zero
// value so that the engine can report them with batch context:
//
//	{
//		uuid: "r1"
//		start: "E0"
//		path: ["up", "up"]
//		transitionDurationMs: 100
//		repeatDurationSec: 0.5
//		routeRepeats: 2
//		trailLength: 1
//	}
func CompileRoute(v cue.Value) (*ir.Route, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	route := &ir.Route{TrailLength: DefaultTrailLength}

	if s, ok, err := lookupString(v, "uuid"); err != nil {
		return nil, err
	} else if ok {
		route.UUID = s
	}

	if s, ok, err := lookupString(v, "start"); err != nil {
		return nil, err
	} else if ok {
		route.Start = ir.NormalizeID(s)
	}

	pathVal := v.LookupPath(cue.ParsePath("path"))
	if pathVal.Exists() {
		iter, err := pathVal.List()
		if err != nil {
			return nil, &CompileError{Field: "path", Message: "path must be a list of strings", Pos: pathVal.Pos()}
		}
		for iter.Next() {
			step, err := iter.Value().String()
			if err != nil {
				return nil, &CompileError{Field: "path", Message: "path entries must be strings", Pos: iter.Value().Pos()}
			}
			route.Path = append(route.Path, step)
		}
	}

	if n, ok, err := lookupInt(v, "transitionDurationMs"); err != nil {
		return nil, err
	} else if ok {
		route.TransitionDurationMs = n
	}

	if n, ok, err := lookupInt(v, "routeRepeats"); err != nil {
		return nil, err
	} else if ok {
		route.RouteRepeats = int(n)
	}

	if n, ok, err := lookupInt(v, "trailLength"); err != nil {
		return nil, err
	} else if ok {
		route.TrailLength = int(n)
	}

	repeatVal := v.LookupPath(cue.ParsePath("repeatDurationSec"))
	if repeatVal.Exists() {
		f, err := repeatVal.Float64()
		if err != nil {
			return nil, &CompileError{Field: "repeatDurationSec", Message: "must be a number", Pos: repeatVal.Pos()}
		}
		route.RepeatDurationSec = f
	}

	return route, nil
}

// CompileRoutes parses a CUE list of routes, preserving order.
func CompileRoutes(v cue.Value) ([]ir.Route, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "routes", Message: "routes must be a list", Pos: v.Pos()}
	}

	var routes []ir.Route
	for i := 0; iter.Next(); i++ {
		route, err := CompileRoute(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}
		routes = append(routes, *route)
	}
	return routes, nil
}

// CompileDevice parses a CUE device declaration. Either a rectangular grid:
//
//	device: grid: {rows: 3, cols: 4}
//
// or an explicit neighbour table:
//
//	device: {
//		name: "chip"
//		electrodes: {
//			E0: {up: "E1"}
//			E1: {down: "E0"}
//		}
//	}
func CompileDevice(v cue.Value) (*device.Device, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	gridVal := v.LookupPath(cue.ParsePath("grid"))
	if gridVal.Exists() {
		rows, ok, err := lookupInt(gridVal, "rows")
		if err != nil {
			return nil, err
		}
		cols, ok2, err := lookupInt(gridVal, "cols")
		if err != nil {
			return nil, err
		}
		if !ok || !ok2 || rows <= 0 || cols <= 0 {
			return nil, &CompileError{Field: "grid", Message: "grid needs positive rows and cols", Pos: gridVal.Pos()}
		}
		return device.NewGrid(int(rows), int(cols)), nil
	}

	name, _, err := lookupString(v, "name")
	if err != nil {
		return nil, err
	}

	elecVal := v.LookupPath(cue.ParsePath("electrodes"))
	if !elecVal.Exists() {
		return nil, &CompileError{Field: "electrodes", Message: "device needs a grid or electrodes", Pos: v.Pos()}
	}
	iter, err := elecVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	table := make(map[string]map[ir.Direction]string)
	for iter.Next() {
		id := iter.Label()
		adj := make(map[ir.Direction]string)
		for _, dir := range ir.Directions {
			s, ok, err := lookupString(iter.Value(), string(dir))
			if err != nil {
				return nil, err
			}
			if ok {
				adj[dir] = s
			}
		}
		table[id] = adj
	}

	d, err := device.New(name, table)
	if err != nil {
		return nil, &CompileError{Field: "electrodes", Message: err.Error(), Pos: elecVal.Pos()}
	}
	return d, nil
}

// IDGenerator produces route identifiers.
type IDGenerator interface {
	Generate() string
}

// AssignRouteIDs gives every route without a uuid a fresh one from gen.
// Routes are modified in place.
func AssignRouteIDs(routes []ir.Route, gen IDGenerator) {
	for i := range routes {
		if routes[i].UUID == "" {
			routes[i].UUID = gen.Generate()
		}
	}
}

func lookupString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, true, nil
}

func lookupInt(v cue.Value, field string) (int64, bool, error) {
	fv := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !fv.Exists() {
		return 0, false, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, false, &CompileError{Field: field, Message: "must be an integer", Pos: fv.Pos()}
	}
	return n, true, nil
}
