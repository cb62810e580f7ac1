// Package device models an electrode topology and resolves routes on it.
//
// A Device is the Device Graph collaborator of the compiler: given a route
// (start plus directional moves, or already-resolved ids) it returns the
// ordered electrode ids the route visits. Moves off the device edge or onto
// undeclared electrodes fail with *GraphResolutionError, which callers
// propagate unchanged.
package device
