package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilramdhan/stepsheet/internal/modules/simulation"
)

const counterSheet = `
name = "Counter"
steps = 3

[constants]
growth = "2"

[cells]
A1 = "=1=A1+1"
b1 = "=A1*GROWTH"
C1 = "=D1*10"

[series]
D1 = [1, 2.5, "3"]
`

func tableRows(out string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		rows = append(rows, strings.Fields(line))
	}
	return rows
}

func TestParseSheet(t *testing.T) {
	sheet, err := parseSheet([]byte(counterSheet))
	require.NoError(t, err)

	assert.Equal(t, "Counter", sheet.Name)
	assert.Equal(t, 3, sheet.Steps)
	assert.Equal(t, "=A1*GROWTH", sheet.Cells["b1"])
	assert.Equal(t, map[string][]string{"D1": {"1", "2.5", "3"}}, sheet.seriesText())
}

func TestParseSheet_Errors(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "No cells", data: `name = "empty"`},
		{name: "Bad TOML", data: `[cells`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSheet([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestSimulateAndWriteTable(t *testing.T) {
	sheet, err := parseSheet([]byte(counterSheet))
	require.NoError(t, err)

	sim, err := sheet.simulate(simulation.NewSimulationEngine(nil, nil, nil, nil), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, sim.Steps)

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, sim))

	assert.Equal(t, [][]string{
		{"step", "A1", "B1", "C1"},
		{"0", "1", "2", "10"},
		{"1", "2", "4", "25"},
		{"2", "3", "6", "30"},
	}, tableRows(buf.String()))
}

func TestWriteTable_ReportsCycle(t *testing.T) {
	sheet := &sheetFile{Cells: map[string]string{"A1": "=B1", "B1": "=A1", "C1": "=7"}}

	sim, err := sheet.simulate(simulation.NewSimulationEngine(nil, nil, nil, nil), 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, sim))
	assert.Contains(t, buf.String(), "cycle at A1, blocked: A1, B1")
}

func TestSimulate_InvalidCellID(t *testing.T) {
	sheet := &sheetFile{Cells: map[string]string{"not a cell": "1"}}

	_, err := sheet.simulate(simulation.NewSimulationEngine(nil, nil, nil, nil), 2)
	assert.ErrorIs(t, err, simulation.ErrInvalidSheet)
}

func TestFirstPositive(t *testing.T) {
	assert.Equal(t, 4, firstPositive(0, -1, 4, 9))
	assert.Equal(t, 0, firstPositive(0, 0))
}
