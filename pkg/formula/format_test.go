package formula

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	testCases := []struct {
		value    float64
		expected string
	}{
		{3, "3"},
		{-12, "-12"},
		{0.5, "0.5"},
		{0.25, "0.25"},
		{1.125, "1.125"},
		{1.0 / 3, "0.333"},
		{2.0 / 3, "0.667"},
		{1e21, "1000000000000000000000"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatNumber(tc.value))
		})
	}

	assert.Equal(t, "NaN", FormatNumber(math.NaN()))
	assert.Equal(t, "+Inf", FormatNumber(math.Inf(1)))
}

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		name     string
		value    Value
		expected string
	}{
		{name: "Nil", value: nil, expected: ""},
		{name: "Boolean", value: Boolean{Value: false}, expected: "FALSE"},
		{name: "String", value: String{Value: "hi"}, expected: "hi"},
		{name: "CellRef", value: CellRef{Row: 2, Col: 27}, expected: "AB3"},
		{name: "CellRange", value: CellRange{Col1: 0, Row1: 0, Col2: 1, Row2: 4}, expected: "A1:B5"},
		{name: "Range", value: Range{Values: []Value{Number{Value: 1}, String{Value: "a"}}}, expected: "[1, a]"},
		{name: "Categorical", value: CategoricalCoord{Category: "q1", Offset: 0.5}, expected: "q1+0.5"},
		{name: "Shape", value: Shape{Label: "text"}, expected: "<text>"},
		{name: "Scale", value: Scale{Label: "y"}, expected: "<scale y>"},
		{name: "Graph", value: Graph{Elements: []Value{Shape{}, Shape{}}}, expected: "<graph 2>"},
		{name: "Error", value: Error{Message: "boom"}, expected: "#ERROR: boom"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatValue(tc.value))
		})
	}
}

func TestCoerceText(t *testing.T) {
	testCases := []struct {
		text     string
		expected Value
	}{
		{"42", Number{Value: 42}},
		{" -1.5 ", Number{Value: -1.5}},
		{".5", Number{Value: 0.5}},
		{"1e3", Number{Value: 1000}},
		{"TRUE", Boolean{Value: true}},
		{"False", Boolean{Value: false}},
		{"NaN", String{Value: "NaN"}},
		{"Inf", String{Value: "Inf"}},
		{"0x10", String{Value: "0x10"}},
		{"12abc", String{Value: "12abc"}},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expected, coerceText(tc.text))
		})
	}
}

func TestHistory_Views(t *testing.T) {
	h := NewHistory()
	h.Append("A1", Number{Value: 1})
	h.Append("A1", Number{Value: 2})

	v, ok := h.ValueAtStep("A1", 1)
	assert.True(t, ok)
	assert.Equal(t, Number{Value: 2}, v)

	_, ok = h.ValueAtStep("A1", 2)
	assert.False(t, ok)

	v, ok = h.LastCommittedBefore("A1", 1)
	assert.True(t, ok)
	assert.Equal(t, Number{Value: 1}, v)

	v, ok = h.LastCommittedBefore("A1", 7)
	assert.True(t, ok)
	assert.Equal(t, Number{Value: 2}, v)

	_, ok = h.LastCommittedBefore("A1", 0)
	assert.False(t, ok)

	assert.Equal(t, 2, h.Len("A1"))
	assert.False(t, h.Has("B1"))
}

func TestCellRange_Cells(t *testing.T) {
	r := CellRange{Col1: 1, Row1: 1, Col2: 0, Row2: 0}

	assert.Equal(t, []Coords{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, r.Cells())
	assert.False(t, r.IsLine())
	assert.True(t, CellRange{Col1: 2, Row1: 0, Col2: 2, Row2: 9}.IsLine())
}
