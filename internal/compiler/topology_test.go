package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/droproute/internal/device"
	"github.com/roach88/droproute/internal/ir"
)

func TestAnalyzeDevice_GridIsClean(t *testing.T) {
	assert.Empty(t, AnalyzeDevice(device.NewGrid(3, 3)))
}

func TestAnalyzeDevice_OneWayLink(t *testing.T) {
	d, err := device.New("oneway", map[string]map[ir.Direction]string{
		"E0": {ir.DirUp: "E1"},
		"E1": {},
	})
	require.NoError(t, err)

	warnings := AnalyzeDevice(d)
	require.Len(t, warnings, 2)
	assert.Equal(t, ir.ElectrodeID("E0"), warnings[0].Electrode)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "one-way link")

	// E1 has no outgoing neighbours
	assert.Equal(t, ir.ElectrodeID("E1"), warnings[1].Electrode)
	assert.Contains(t, warnings[1].Message, "no neighbours")
}

func TestAnalyzeDevice_Regions(t *testing.T) {
	d, err := device.New("split", map[string]map[ir.Direction]string{
		"A0": {ir.DirRight: "A1"},
		"A1": {ir.DirLeft: "A0"},
		"B0": {ir.DirRight: "B1"},
		"B1": {ir.DirLeft: "B0"},
	})
	require.NoError(t, err)

	warnings := AnalyzeDevice(d)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "2 disconnected regions")
}

func TestAnalyzeDevice_SingleElectrode(t *testing.T) {
	d, err := device.New("dot", map[string]map[ir.Direction]string{"E0": {}})
	require.NoError(t, err)
	assert.Empty(t, AnalyzeDevice(d))
}
