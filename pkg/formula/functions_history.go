package formula

var historyFunctions = map[string]Builtin{
	"PREV":       {Fn: fnPrev, CellArgs: 1},
	"HISTORY":    {Fn: fnHistory, CellArgs: 1},
	"SUMHISTORY": {Fn: fnSumHistory, CellArgs: 1},
	"TIMERANGE":  {Fn: fnTimeRange, CellArgs: 1},
}

// valueAt reads a cell's value at an absolute step, live history first
func (env *Env) valueAt(id string, step int) (Value, bool) {
	if v, ok := env.History.ValueAtStep(id, step); ok {
		return v, true
	}
	if env.History.Has(id) {
		return nil, false
	}
	return env.DataHistory.ValueAtStep(id, step)
}

func historical(id string, v Value, ok bool) (Value, error) {
	if !ok {
		return Number{Value: 0}, nil
	}
	v = normalize(v)
	if e, isErr := v.(Error); isErr {
		return nil, runtimeErrorf("Cell %s has an error: %s", id, e.Message)
	}
	return v, nil
}

func fnPrev(c *Call) (Value, error) {
	ref, err := c.Cell(0)
	if err != nil {
		return nil, err
	}
	id := ref.ID()
	v, ok := c.Env.valueAt(id, c.Env.Step-1)
	return historical(id, v, ok)
}

func fnHistory(c *Call) (Value, error) {
	ref, err := c.Cell(0)
	if err != nil {
		return nil, err
	}
	offset, err := c.Number(1)
	if err != nil {
		return nil, err
	}
	back, ok := toCount(offset)
	if !ok || offset < 0 {
		return nil, runtimeErrorf("Offset needs to be a positive number")
	}
	id := ref.ID()
	if back == 0 {
		v, ok := c.Env.lookup(id)
		return historical(id, v, ok)
	}
	v, ok := c.Env.valueAt(id, c.Env.Step-back)
	return historical(id, v, ok)
}

func fnSumHistory(c *Call) (Value, error) {
	ref, err := c.Cell(0)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, v := range c.Env.cellHistory(ref.ID()) {
		if n, ok := normalize(v).(Number); ok {
			sum += n.Value
		}
	}
	return Number{Value: sum}, nil
}

// fnTimeRange snapshots the last n recorded values of a cell up to the
// current step; without n the whole history so far
func fnTimeRange(c *Call) (Value, error) {
	ref, err := c.Cell(0)
	if err != nil {
		return nil, err
	}
	n, err := c.OptionalNumber(1, float64(c.Env.Step+1))
	if err != nil {
		return nil, err
	}
	length, ok := toCount(n)
	if !ok || n < 0 {
		return nil, runtimeErrorf("Offset needs to be a positive number")
	}
	id := ref.ID()
	start := max(0, c.Env.Step-length+1)
	values := make([]Value, 0, c.Env.Step-start+1)
	for step := start; step <= c.Env.Step; step++ {
		if v, ok := c.Env.valueAt(id, step); ok {
			values = append(values, normalize(v))
		}
	}
	return Range{Values: values}, nil
}
