// Package harness runs conformance scenarios against the droproute engine.
//
// A scenario declares a device, a batch of routes and assertions over the
// frames the engine publishes. Scenarios execute the real engine with a
// virtual clock, a fixed run id and an in-memory run log, so the same
// scenario always produces the same frames.
//
// # Scenario Format
//
//	name: two_routes
//	description: "Two routes interleave on a 1x5 grid"
//	run_id: run-two-routes
//	device:
//	  grid: { rows: 1, cols: 5 }
//	routes:
//	  - uuid: fast
//	    start: E0
//	    path: [right, right]
//	    transition_duration_ms: 100
//	  - uuid: slow
//	    start: E4
//	    path: [left]
//	    transition_duration_ms: 200
//	cancel_after_steps: 0
//	assertions:
//	  - type: frame_count
//	    count: 5
//	  - type: active_at
//	    seq: 3
//	    active: [E1, E4]
//	  - type: final_active
//	    active: [E2, E3]
//	  - type: reason
//	    reason: exhausted
//
// A device may instead list electrodes with their neighbours:
//
//	device:
//	  name: tee
//	  electrodes:
//	    A: { right: B }
//	    B: { left: A, down: C }
//	    C: { up: B }
//
// # Assertion Types
//
//   - frame_count: exact number of published frames
//   - active_at: active set of the frame selected by seq or at (e.g. "150ms")
//   - final_active: active set of the last frame
//   - reason: stop reason (exhausted, deadline, cancelled, failed)
//   - error: the run or batch failed with an error containing a substring
//
// Active sets compare in order: the engine publishes electrodes in the
// order their windows appear in the merged schedule.
//
// # Golden Files
//
// RunWithGolden serializes the frames with canonical JSON and compares them
// with testdata/golden/<name>.golden using goldie.
package harness
