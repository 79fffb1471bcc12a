package formula

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tags a runtime value
type Kind int

const (
	KindNumber Kind = iota
	KindBoolean
	KindString
	KindCellLiteral
	KindCellRange
	KindRange
	KindPoint
	KindCategoricalCoord
	KindShape
	KindScale
	KindGraph
	KindError
)

var kindNames = [...]string{
	KindNumber:           "Number",
	KindBoolean:          "Boolean",
	KindString:           "String",
	KindCellLiteral:      "CellLiteral",
	KindCellRange:        "CellRange",
	KindRange:            "Range",
	KindPoint:            "Point",
	KindCategoricalCoord: "CategoricalCoord",
	KindShape:            "Shape",
	KindScale:            "Scale",
	KindGraph:            "Graph",
	KindError:            "Error",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a runtime value of one of the kinds above
type Value interface {
	Kind() Kind
}

// Number is a 64-bit float
type Number struct {
	Value float64
}

// Boolean is TRUE or FALSE
type Boolean struct {
	Value bool
}

// String is text
type String struct {
	Value string
}

// CellRef carries a cell identity instead of its value. It only appears while
// evaluating arguments of history-walking functions.
type CellRef struct {
	Row int
	Col int
}

// CellRange is a rectangle of cells given by two corners
type CellRange struct {
	Col1, Row1 int
	Col2, Row2 int
}

// Range is an ordered snapshot of values, e.g. a time window of one cell
type Range struct {
	Values []Value
}

// Point is a 2-D position; each axis is a Number or a CategoricalCoord
type Point struct {
	X Value
	Y Value
}

// CategoricalCoord places a value on a categorical axis
type CategoricalCoord struct {
	Category string
	Offset   float64
}

// Shape is a drawable element: a label plus a drawing payload
type Shape struct {
	Label   string
	Payload map[string]Value
}

// Scale maps a numeric domain onto a numeric range
type Scale struct {
	Label  string
	Domain [2]float64
	Range  [2]float64
}

// Graph is the render payload produced by RENDER
type Graph struct {
	Elements []Value
}

// Error is stored in a history slot when a (cell, step) pair fails
type Error struct {
	Message string
}

func (Number) Kind() Kind           { return KindNumber }
func (Boolean) Kind() Kind          { return KindBoolean }
func (String) Kind() Kind           { return KindString }
func (CellRef) Kind() Kind          { return KindCellLiteral }
func (CellRange) Kind() Kind        { return KindCellRange }
func (Range) Kind() Kind            { return KindRange }
func (Point) Kind() Kind            { return KindPoint }
func (CategoricalCoord) Kind() Kind { return KindCategoricalCoord }
func (Shape) Kind() Kind            { return KindShape }
func (Scale) Kind() Kind            { return KindScale }
func (Graph) Kind() Kind            { return KindGraph }
func (Error) Kind() Kind            { return KindError }

// ID renders the referenced cell
func (c CellRef) ID() string {
	return CellCoordsToID(Coords{Row: c.Row, Col: c.Col})
}

// Bounds returns the normalized top-left and bottom-right corners
func (r CellRange) Bounds() (top, left, bottom, right int) {
	top, bottom = min(r.Row1, r.Row2), max(r.Row1, r.Row2)
	left, right = min(r.Col1, r.Col2), max(r.Col1, r.Col2)
	return
}

// IsLine reports whether the range is a single row or a single column
func (r CellRange) IsLine() bool {
	top, left, bottom, right := r.Bounds()
	return top == bottom || left == right
}

// MaxRangeCells is the largest range functions will read cell by cell
const MaxRangeCells = 100_000

// Area is the number of cells covered. It is a float so that ranges spanning
// absurd row numbers cannot overflow.
func (r CellRange) Area() float64 {
	top, left, bottom, right := r.Bounds()
	return (float64(bottom) - float64(top) + 1) * (float64(right) - float64(left) + 1)
}

// Contains reports whether c lies inside the range
func (r CellRange) Contains(c Coords) bool {
	top, left, bottom, right := r.Bounds()
	return c.Row >= top && c.Row <= bottom && c.Col >= left && c.Col <= right
}

// Cells lists the coordinates of the range in row-major order. Callers check
// Area first.
func (r CellRange) Cells() []Coords {
	top, left, bottom, right := r.Bounds()
	cells := make([]Coords, 0, (bottom-top+1)*(right-left+1))
	for row := top; row <= bottom; row++ {
		for col := left; col <= right; col++ {
			cells = append(cells, Coords{Row: row, Col: col})
		}
	}
	return cells
}

var numericText = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// coerceText turns stored text into the value it denotes
func coerceText(text string) Value {
	if trimmed := strings.TrimSpace(text); numericText.MatchString(trimmed) {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Number{Value: n}
		}
	}
	switch strings.ToUpper(text) {
	case "TRUE":
		return Boolean{Value: true}
	case "FALSE":
		return Boolean{Value: false}
	}
	return String{Value: text}
}

// normalize applies the text coercion rule to stored String values
func normalize(v Value) Value {
	if s, ok := v.(String); ok {
		return coerceText(s.Value)
	}
	return v
}

// ParseLiteral interprets non-formula cell text the same way the evaluator does.
func ParseLiteral(text string) Value {
	return coerceText(text)
}
