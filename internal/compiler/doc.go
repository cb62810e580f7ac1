// Package compiler turns route definitions into compiled electrode paths.
//
// Two stages live here:
//   - protocol parsing: CUE values (device + routes) into ir.Route and
//     *device.Device, reporting *CompileError with source positions
//   - route compilation: Compile resolves a route on a Graph, detects closed
//     loops and expands them by the derived repeat count
//
// Loop repeats are always copies of the base cycle, never of an already
// extended path.
package compiler
