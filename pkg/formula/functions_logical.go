package formula

var logicalFunctions = map[string]Builtin{
	"IF":  pure(fnIf),
	"AND": pure(fnAnd),
	"OR":  pure(fnOr),
	"NOT": pure(fnNot),
}

var stepFunctions = map[string]Builtin{
	"STEP":  pure(fnStep),
	"STEPS": pure(fnSteps),
}

func fnIf(c *Call) (Value, error) {
	cond, err := c.Bool(0)
	if err != nil {
		return nil, err
	}
	if cond {
		return c.Arg(1)
	}
	return c.Arg(2)
}

func fnAnd(c *Call) (Value, error) {
	if _, err := c.Arg(0); err != nil {
		return nil, err
	}
	result := true
	for i := range c.Args {
		b, err := c.Bool(i)
		if err != nil {
			return nil, err
		}
		result = result && b
	}
	return Boolean{Value: result}, nil
}

func fnOr(c *Call) (Value, error) {
	if _, err := c.Arg(0); err != nil {
		return nil, err
	}
	result := false
	for i := range c.Args {
		b, err := c.Bool(i)
		if err != nil {
			return nil, err
		}
		result = result || b
	}
	return Boolean{Value: result}, nil
}

func fnNot(c *Call) (Value, error) {
	b, err := c.Bool(0)
	if err != nil {
		return nil, err
	}
	return Boolean{Value: !b}, nil
}

func fnStep(c *Call) (Value, error) {
	return Number{Value: float64(c.Env.Step)}, nil
}

func fnSteps(c *Call) (Value, error) {
	return Number{Value: float64(c.Env.StepCount())}, nil
}
