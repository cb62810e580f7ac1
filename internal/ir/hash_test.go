package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleHash_Deterministic(t *testing.T) {
	windows := []ActivationWindow{
		{ElectrodeID: "E0", OnMs: 0, OffMs: 100, StepIndex: 0},
		{ElectrodeID: "E1", OnMs: 100, OffMs: 200, StepIndex: 1},
	}

	h1, err := ScheduleHash(windows)
	require.NoError(t, err)
	h2, err := ScheduleHash(windows)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "hex-encoded sha256")
}

func TestScheduleHash_OrderSensitive(t *testing.T) {
	a := ActivationWindow{ElectrodeID: "E0", OnMs: 0, OffMs: 100}
	b := ActivationWindow{ElectrodeID: "E1", OnMs: 100, OffMs: 200, StepIndex: 1}

	h1, err := ScheduleHash([]ActivationWindow{a, b})
	require.NoError(t, err)
	h2, err := ScheduleHash([]ActivationWindow{b, a})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestScheduleHash_Empty(t *testing.T) {
	h, err := ScheduleHash(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, h)
}

func TestFrameHash_IgnoresRunID(t *testing.T) {
	f1 := Frame{RunID: "run-a", Seq: 1, At: 50 * time.Millisecond, Active: []ElectrodeID{"E0"}}
	f2 := Frame{RunID: "run-b", Seq: 1, At: 50 * time.Millisecond, Active: []ElectrodeID{"E0"}}

	h1, err := FrameHash(f1)
	require.NoError(t, err)
	h2, err := FrameHash(f2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	f2.Active = nil
	h3, err := FrameHash(f2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestFrameValue_NilActiveEncodesEmptyArray(t *testing.T) {
	data, err := MarshalCanonical(FrameValue(Frame{Seq: 2, At: 100 * time.Millisecond}))
	require.NoError(t, err)
	assert.Equal(t, `{"active":[],"at_ms":100,"seq":2}`, string(data))
}
