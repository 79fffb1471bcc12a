package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferences(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "Range expands row-major", text: "=SUM(A1:B2) + $C$3 + A1", expected: []string{"A1", "B1", "A2", "B2", "C3"}},
		{name: "Both formula variants", text: "=B1=A1+1", expected: []string{"B1", "A1"}},
		{name: "Lower case", text: "=a1*2", expected: []string{"A1"}},
		{name: "String literal is not a reference", text: `=CONCAT("A1", B1)`, expected: []string{"B1"}},
		{name: "Function names are not references", text: "=LOG10(2) + PI()", expected: nil},
		{name: "Literal text", text: "A1", expected: nil},
		{name: "Lex failure", text: `="abc`, expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, References(tc.text))
		})
	}
}

func TestResolveOrder(t *testing.T) {
	order, err := ResolveOrder([]CellFormula{
		{ID: "C1", Formula: "=B1*A1"},
		{ID: "B1", Formula: "=A1+5"},
		{ID: "A1", Formula: "=1=A1+1"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1", "C1"}, order)
}

func TestResolveOrder_SelfReferenceIsNotACycle(t *testing.T) {
	order, err := ResolveOrder([]CellFormula{
		{ID: "A1", Formula: "=A1+1"},
		{ID: "A2", Formula: "=SUM(A1:A3)"},
		{ID: "A3", Formula: "=PREV(A3) + A1"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A3", "A2"}, order)
}

func TestResolveOrder_Cycle(t *testing.T) {
	_, err := ResolveOrder([]CellFormula{
		{ID: "A1", Formula: "=B1"},
		{ID: "B1", Formula: "=C1"},
		{ID: "C1", Formula: "=A1"},
	})

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "A1", cycle.CellID)
	assert.Equal(t, "Circular dependency detected at A1", err.Error())
}

func TestResolve_PartitionsCycle(t *testing.T) {
	res := Resolve([]CellFormula{
		{ID: "A1", Formula: "=B1"},
		{ID: "B1", Formula: "=A1"},
		{ID: "C1", Formula: "=A1+1"},
		{ID: "D1", Formula: "=5"},
		{ID: "E1", Formula: "=D1*2"},
	})

	assert.True(t, res.Error)
	assert.Equal(t, "A1", res.CycleAt)
	assert.Equal(t, []string{"D1", "E1"}, res.Cells)
	assert.Equal(t, []string{"A1", "B1", "C1"}, res.Blocked)
}

func TestResolve_NoCycle(t *testing.T) {
	res := Resolve([]CellFormula{
		{ID: "B1", Formula: "=A1"},
		{ID: "A1", Formula: "3"},
	})

	assert.False(t, res.Error)
	assert.Equal(t, []string{"A1", "B1"}, res.Cells)
	assert.Empty(t, res.Blocked)
}

func TestReferences_LargeRangeKeepsCorners(t *testing.T) {
	assert.Equal(t, []string{"A1", "ZZ9999999", "B2"}, References("=SUM(A1:ZZ9999999) + B2"))
}

func TestResolveOrder_LargeRangeMatchesBatchCells(t *testing.T) {
	order, err := ResolveOrder([]CellFormula{
		{ID: "C1", Formula: "=SUM(A1:ZZ9999999)"},
		{ID: "A1", Formula: "=1"},
		{ID: "B5", Formula: "=A1*2"},
		{ID: "AAA1", Formula: "=3"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B5", "C1", "AAA1"}, order)
}

func TestResolve_LargeRangeCycle(t *testing.T) {
	res := Resolve([]CellFormula{
		{ID: "A1", Formula: "=SUM(B1:B9999999)"},
		{ID: "B7", Formula: "=A1"},
		{ID: "C1", Formula: "=1"},
	})

	assert.True(t, res.Error)
	assert.Equal(t, []string{"C1"}, res.Cells)
	assert.Equal(t, []string{"A1", "B7"}, res.Blocked)
}
