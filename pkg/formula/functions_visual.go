package formula

var visualFunctions = map[string]Builtin{
	"POINT":            pure(fnPoint),
	"CATEGORICALCOORD": pure(fnCategoricalCoord),
	"TEXT":             pure(fnText),
	"SCALE":            pure(fnScale),
	"RENDER":           pure(fnRender),
}

// axis returns a Number or CategoricalCoord argument
func (c *Call) axis(index int) (Value, error) {
	v, err := c.Arg(index)
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case Number, CategoricalCoord:
		return v, nil
	}
	return nil, c.fail(ErrArgTypeMismatch, index)
}

func fnPoint(c *Call) (Value, error) {
	x, err := c.axis(0)
	if err != nil {
		return nil, err
	}
	y, err := c.axis(1)
	if err != nil {
		return nil, err
	}
	return Point{X: x, Y: y}, nil
}

func fnCategoricalCoord(c *Call) (Value, error) {
	category, err := c.text(0)
	if err != nil {
		return nil, err
	}
	offset, err := c.OptionalNumber(1, 0)
	if err != nil {
		return nil, err
	}
	return CategoricalCoord{Category: category, Offset: offset}, nil
}

// fnText places a text label at a point
func fnText(c *Call) (Value, error) {
	v, err := c.Arg(0)
	if err != nil {
		return nil, err
	}
	at, ok := v.(Point)
	if !ok {
		return nil, c.fail(ErrArgTypeMismatch, 0)
	}
	label, err := c.text(1)
	if err != nil {
		return nil, err
	}
	return Shape{
		Label: "text",
		Payload: map[string]Value{
			"position": at,
			"text":     String{Value: label},
		},
	}, nil
}

func fnScale(c *Call) (Value, error) {
	label, err := c.text(0)
	if err != nil {
		return nil, err
	}
	var bounds [4]float64
	for i := range bounds {
		n, err := c.Number(i + 1)
		if err != nil {
			return nil, err
		}
		bounds[i] = n
	}
	return Scale{
		Label:  label,
		Domain: [2]float64{bounds[0], bounds[1]},
		Range:  [2]float64{bounds[2], bounds[3]},
	}, nil
}

// fnRender collects shapes and scales into a graph; Range arguments are
// flattened
func fnRender(c *Call) (Value, error) {
	elements := make([]Value, 0, len(c.Args))
	for i, arg := range c.Args {
		var items []Value
		if r, ok := arg.(Range); ok {
			items = r.Values
		} else {
			items = []Value{arg}
		}
		for _, item := range items {
			switch item.(type) {
			case Shape, Scale, Point:
				elements = append(elements, item)
			default:
				return nil, c.fail(ErrArgTypeMismatch, i)
			}
		}
	}
	return Graph{Elements: elements}, nil
}
