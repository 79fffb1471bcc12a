package formula

import (
	"github.com/samber/lo"
)

var lookupFunctions = map[string]Builtin{
	"INDEX":   pure(fnIndex),
	"MATCH":   pure(fnMatch),
	"MIN":     pure(fnMin),
	"MAX":     pure(fnMax),
	"SUM":     pure(fnSum),
	"AVERAGE": pure(fnAverage),
	"COUNT":   pure(fnCount),
	"COUNTIF": pure(fnCountIf),
}

// rangeValues resolves a CellRange or Range argument into its values
func (c *Call) rangeValues(index int) ([]Value, error) {
	v, err := c.Arg(index)
	if err != nil {
		return nil, err
	}
	switch r := v.(type) {
	case CellRange:
		if r.Area() > MaxRangeCells {
			return nil, runtimeErrorf("%s: range %s covers more than %d cells", c.Name, FormatValue(r), MaxRangeCells)
		}
		return lo.Map(r.Cells(), func(cell Coords, _ int) Value {
			return c.Env.resolve(cell)
		}), nil
	case Range:
		return lo.Map(r.Values, func(v Value, _ int) Value {
			return normalize(v)
		}), nil
	default:
		return nil, c.fail(ErrArgTypeMismatch, index)
	}
}

// aggregate flattens every argument: ranges expand to their values, scalars
// are kept as given
func (c *Call) aggregate() ([]float64, error) {
	if _, err := c.Arg(0); err != nil {
		return nil, err
	}
	var values []Value
	for i, arg := range c.Args {
		switch arg.(type) {
		case CellRange, Range:
			expanded, err := c.rangeValues(i)
			if err != nil {
				return nil, err
			}
			values = append(values, expanded...)
		default:
			values = append(values, arg)
		}
	}
	return numbers(values), nil
}

// numbers keeps only the numeric entries
func numbers(values []Value) []float64 {
	return lo.FilterMap(values, func(v Value, _ int) (float64, bool) {
		n, ok := v.(Number)
		return n.Value, ok
	})
}

func fnIndex(c *Call) (Value, error) {
	values, err := c.rangeValues(0)
	if err != nil {
		return nil, err
	}
	i, err := c.Number(1)
	if err != nil {
		return nil, err
	}
	idx, ok := toCount(i)
	if !ok || idx < 0 || idx >= len(values) {
		return Number{Value: 0}, nil
	}
	if e, ok := values[idx].(Error); ok {
		return nil, runtimeErrorf("INDEX: referenced cell has an error: %s", e.Message)
	}
	return values[idx], nil
}

func fnMatch(c *Call) (Value, error) {
	needle, err := c.Arg(0)
	if err != nil {
		return nil, err
	}
	if len(c.Args) > 1 {
		if r, ok := c.Args[1].(CellRange); ok && !r.IsLine() {
			return nil, runtimeErrorf("MATCH requires a single row or column range")
		}
	}
	values, err := c.rangeValues(1)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		switch n := needle.(type) {
		case Number:
			if m, ok := v.(Number); ok && m.Value == n.Value {
				return Number{Value: float64(i)}, nil
			}
		case String:
			if m, ok := v.(String); ok && m.Value == n.Value {
				return Number{Value: float64(i)}, nil
			}
		}
	}
	return Number{Value: -1}, nil
}

func fnMin(c *Call) (Value, error) {
	nums, err := c.aggregate()
	if err != nil {
		return nil, err
	}
	return Number{Value: lo.Min(nums)}, nil
}

func fnMax(c *Call) (Value, error) {
	nums, err := c.aggregate()
	if err != nil {
		return nil, err
	}
	return Number{Value: lo.Max(nums)}, nil
}

func fnSum(c *Call) (Value, error) {
	nums, err := c.aggregate()
	if err != nil {
		return nil, err
	}
	return Number{Value: lo.Sum(nums)}, nil
}

func fnAverage(c *Call) (Value, error) {
	nums, err := c.aggregate()
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return Number{Value: 0}, nil
	}
	return Number{Value: lo.Sum(nums) / float64(len(nums))}, nil
}

func fnCount(c *Call) (Value, error) {
	nums, err := c.aggregate()
	if err != nil {
		return nil, err
	}
	return Number{Value: float64(len(nums))}, nil
}

// fnCountIf counts entries equal to the matcher: numbers by value, booleans
// by their TRUE/FALSE text, strings by exact text
func fnCountIf(c *Call) (Value, error) {
	values, err := c.rangeValues(0)
	if err != nil {
		return nil, err
	}
	matcher, err := c.Arg(1)
	if err != nil {
		return nil, err
	}
	if !isScalar(matcher) {
		return nil, c.fail(ErrArgTypeMismatch, 1)
	}
	count := lo.CountBy(values, func(v Value) bool {
		switch m := matcher.(type) {
		case Number:
			n, ok := v.(Number)
			return ok && n.Value == m.Value
		case Boolean:
			return isScalar(v) && FormatValue(v) == FormatValue(m)
		case String:
			s, ok := v.(String)
			return ok && s.Value == m.Value
		}
		return false
	})
	return Number{Value: float64(count)}, nil
}
