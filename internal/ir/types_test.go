package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, NormalizeID("\u00e9lectrode"), NormalizeID("e\u0301lectrode"))
	assert.Equal(t, ElectrodeID("E0"), NormalizeID("E0"))
}

func TestIsDirection(t *testing.T) {
	for _, d := range Directions {
		assert.True(t, IsDirection(string(d)), d)
	}
	assert.False(t, IsDirection("UP"))
	assert.False(t, IsDirection("E0"))
	assert.False(t, IsDirection(""))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "abc", Route{UUID: "abc", Start: "E0"}.Label())
	assert.Equal(t, "E0", Route{Start: "E0"}.Label())
}

func TestRouteTransition(t *testing.T) {
	assert.Equal(t, 150*time.Millisecond, Route{TransitionDurationMs: 150}.Transition())
}

func TestActivationWindowActiveAt(t *testing.T) {
	w := ActivationWindow{ElectrodeID: "E1", OnMs: 100, OffMs: 200}

	assert.False(t, w.ActiveAt(99*time.Millisecond))
	assert.True(t, w.ActiveAt(100*time.Millisecond), "on is inclusive")
	assert.True(t, w.ActiveAt(199*time.Millisecond))
	assert.False(t, w.ActiveAt(200*time.Millisecond), "off is exclusive")
}

func TestActivationWindowNegativeOnIsActiveAtZero(t *testing.T) {
	w := ActivationWindow{ElectrodeID: "E0", OnMs: -200, OffMs: 100}
	assert.True(t, w.ActiveAt(0))
	assert.Equal(t, int64(-200), w.OnMs, "storage is never clamped")
}
