package formula

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber prints integral values without decimals and others with the
// fewest decimals (1 to 3) that round-trip, falling back to 3.
func FormatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if n == math.Trunc(n) {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	for decimals := 1; decimals <= 3; decimals++ {
		text := strconv.FormatFloat(n, 'f', decimals, 64)
		if parsed, err := strconv.ParseFloat(text, 64); err == nil && parsed == n {
			return text
		}
	}
	return strconv.FormatFloat(n, 'f', 3, 64)
}

// FormatValue renders a value for display
func FormatValue(v Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case Number:
		return FormatNumber(v.Value)
	case Boolean:
		if v.Value {
			return "TRUE"
		}
		return "FALSE"
	case String:
		return v.Value
	case CellRef:
		return v.ID()
	case CellRange:
		return CellCoordsToID(Coords{Row: v.Row1, Col: v.Col1}) + ":" + CellCoordsToID(Coords{Row: v.Row2, Col: v.Col2})
	case Range:
		return "[" + joinValues(v.Values) + "]"
	case Point:
		return "(" + FormatValue(v.X) + ", " + FormatValue(v.Y) + ")"
	case CategoricalCoord:
		return v.Category + "+" + FormatNumber(v.Offset)
	case Shape:
		return "<" + v.Label + ">"
	case Scale:
		return "<scale " + v.Label + ">"
	case Graph:
		return "<graph " + strconv.Itoa(len(v.Elements)) + ">"
	case Error:
		return "#ERROR: " + v.Message
	default:
		return v.Kind().String()
	}
}

func joinValues(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, ", ")
}
