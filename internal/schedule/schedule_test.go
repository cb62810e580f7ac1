package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/droproute/internal/compiler"
	"github.com/roach88/droproute/internal/ir"
)

const ms = time.Millisecond

func path(s ...string) ir.CompiledPath {
	out := make(ir.CompiledPath, len(s))
	for i, v := range s {
		out[i] = ir.ElectrodeID(v)
	}
	return out
}

func TestWindows_Example(t *testing.T) {
	route := ir.Route{TransitionDurationMs: 100, TrailLength: 1}

	got := Windows(route, path("E0", "E1", "E2"))

	assert.Equal(t, []ir.ActivationWindow{
		{ElectrodeID: "E0", OnMs: 0, OffMs: 100, StepIndex: 0},
		{ElectrodeID: "E1", OnMs: 100, OffMs: 200, StepIndex: 1},
		{ElectrodeID: "E2", OnMs: 200, OffMs: 300, StepIndex: 2},
	}, got)
}

func TestWindows_TrailOverlap(t *testing.T) {
	route := ir.Route{TransitionDurationMs: 100, TrailLength: 3}

	got := Windows(route, path("E0", "E1", "E2", "E3"))

	require.Len(t, got, 4)
	assert.Equal(t, int64(-200), got[0].OnMs, "negative on-times are kept")
	assert.Equal(t, int64(100), got[0].OffMs)
	assert.Equal(t, int64(100), got[3].OnMs)
	assert.Equal(t, int64(400), got[3].OffMs)
}

func TestWindows_WidthProperty(t *testing.T) {
	p := path("A", "B", "C", "D", "E", "F", "G")
	for _, trans := range []int64{1, 7, 100, 250} {
		for trail := 1; trail <= 8; trail++ {
			route := ir.Route{TransitionDurationMs: trans, TrailLength: trail}
			for _, w := range Windows(route, p) {
				assert.Equal(t, trans*int64(trail), w.OffMs-w.OnMs)
				assert.Less(t, w.OnMs, w.OffMs)
			}
		}
	}
}

func TestWindows_LongestTrail(t *testing.T) {
	route := ir.Route{TransitionDurationMs: compiler.MaxTransitionDurationMs, TrailLength: compiler.MaxPathLength}

	got := Windows(route, path("E0", "E1"))

	require.Len(t, got, 2)
	for _, w := range got {
		assert.Less(t, w.OnMs, w.OffMs)
		assert.Equal(t, int64(compiler.MaxTransitionDurationMs)*compiler.MaxPathLength, w.OffMs-w.OnMs)
	}
}

func TestWindows_Idempotent(t *testing.T) {
	route := ir.Route{TransitionDurationMs: 40, TrailLength: 2}
	p := path("E0", "E1", "E0", "E1")

	first := Windows(route, p)
	second := Windows(route, p)
	assert.Equal(t, first, second)

	h1, err := Schedule(first).Hash()
	require.NoError(t, err)
	h2, err := Schedule(second).Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestWindows_Empty(t *testing.T) {
	assert.Empty(t, Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 1}, nil))
}

func TestMerge_PreservesRouteOrder(t *testing.T) {
	a := Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 1}, path("E0", "E1"))
	b := Windows(ir.Route{TransitionDurationMs: 200, TrailLength: 1}, path("E9"))

	s := Merge(a, b)

	require.Len(t, s, 3)
	assert.Equal(t, ir.ElectrodeID("E0"), s[0].ElectrodeID)
	assert.Equal(t, 0, s[0].RouteIndex)
	assert.Equal(t, ir.ElectrodeID("E1"), s[1].ElectrodeID)
	assert.Equal(t, ir.ElectrodeID("E9"), s[2].ElectrodeID)
	assert.Equal(t, 1, s[2].RouteIndex)
	assert.Equal(t, 0, a[0].RouteIndex, "inputs are not modified")
}

func TestSchedule_At(t *testing.T) {
	s := Merge(Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 1}, path("E0", "E1", "E2")))

	tests := []struct {
		at        time.Duration
		active    []ir.ElectrodeID
		remaining int
	}{
		{0, []ir.ElectrodeID{"E0"}, 2},
		{50 * ms, []ir.ElectrodeID{"E0"}, 2},
		{100 * ms, []ir.ElectrodeID{"E1"}, 1},
		{250 * ms, []ir.ElectrodeID{"E2"}, 0},
		{300 * ms, []ir.ElectrodeID{}, 0},
	}

	for _, tt := range tests {
		active, remaining := s.At(tt.at)
		assert.Equal(t, tt.active, DedupIDs(active), "t=%v", tt.at)
		assert.Len(t, remaining, tt.remaining, "t=%v", tt.at)
	}
}

func TestSchedule_NegativeOnActiveAtZero(t *testing.T) {
	s := Merge(Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 3}, path("E0", "E1", "E2")))

	assert.Equal(t, []ir.ElectrodeID{"E0", "E1", "E2"}, s.ActiveIDs(0))
}

func TestSchedule_ActiveIDsDeduplicates(t *testing.T) {
	// Two routes crossing E5 at the same moment.
	a := Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 1}, path("E4", "E5"))
	b := Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 1}, path("E6", "E5"))
	s := Merge(a, b)

	assert.Equal(t, []ir.ElectrodeID{"E4", "E6"}, s.ActiveIDs(0))
	assert.Equal(t, []ir.ElectrodeID{"E5"}, s.ActiveIDs(150*ms))
}

func TestSchedule_LoopRevisitDeduplicates(t *testing.T) {
	s := Merge(Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 2}, path("E0", "E1", "E0")))

	// At 250ms, windows 1 (E1: 0..200) closed; 2 (E0: 100..300) active.
	assert.Equal(t, []ir.ElectrodeID{"E0"}, s.ActiveIDs(250*ms))
	// At 150ms, E1 (0..200) and E0 step 2 (100..300) active; E0 step 0 (-100..100) closed.
	assert.Equal(t, []ir.ElectrodeID{"E1", "E0"}, s.ActiveIDs(150*ms))
}

func TestSchedule_End(t *testing.T) {
	assert.Equal(t, time.Duration(0), Schedule(nil).End())

	s := Merge(
		Windows(ir.Route{TransitionDurationMs: 100, TrailLength: 1}, path("E0", "E1")),
		Windows(ir.Route{TransitionDurationMs: 50, TrailLength: 1}, path("E2")),
	)
	assert.Equal(t, 200*ms, s.End())
}
