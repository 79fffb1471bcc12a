package formula

import (
	"math"
)

var randomFunctions = map[string]Builtin{
	"RAND":        pure(fnRand),
	"RANDBETWEEN": pure(fnRandBetween),
	"CHOICE":      pure(fnChoice),
}

func fnRand(c *Call) (Value, error) {
	return Number{Value: c.random().Float64()}, nil
}

// fnRandBetween returns an integer in [min, max], both bounds inclusive
func fnRandBetween(c *Call) (Value, error) {
	lo, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	hi, err := c.Number(1)
	if err != nil {
		return nil, err
	}
	lo, hi = math.Ceil(lo), math.Floor(hi)
	if lo > hi {
		return nil, runtimeErrorf("RANDBETWEEN: min must not be greater than max")
	}
	n := lo + math.Floor(c.random().Float64()*(hi-lo+1))
	return Number{Value: math.Min(n, hi)}, nil
}

// fnChoice picks one of its arguments
func fnChoice(c *Call) (Value, error) {
	if _, err := c.Arg(0); err != nil {
		return nil, err
	}
	i := int(c.random().Float64() * float64(len(c.Args)))
	return c.Args[min(i, len(c.Args)-1)], nil
}
