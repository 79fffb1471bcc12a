package formula

import (
	"math"
)

var mathFunctions = map[string]Builtin{
	"ABS":     pure(unaryMath(math.Abs)),
	"FLOOR":   pure(unaryMath(math.Floor)),
	"CEILING": pure(unaryMath(math.Ceil)),
	"EXP":     pure(unaryMath(math.Exp)),
	"ATAN":    pure(unaryMath(math.Atan)),
	"SIN":     pure(unaryMath(math.Sin)),
	"COS":     pure(unaryMath(math.Cos)),
	"POWER":   pure(binaryMath(math.Pow)),
	"MMIN":    pure(binaryMath(math.Min)),
	"MMAX":    pure(binaryMath(math.Max)),
	"SQRT":    pure(fnSqrt),
	"LN":      pure(fnLn),
	"LOG10":   pure(fnLog10),
	"TAN":     pure(fnTan),
	"ASIN":    pure(inverseTrig(math.Asin)),
	"ACOS":    pure(inverseTrig(math.Acos)),
	"ROUND":   pure(fnRound),
	"MOD":     pure(fnMod),
	"PI":      pure(fnPi),
}

func unaryMath(fn func(float64) float64) Func {
	return func(c *Call) (Value, error) {
		x, err := c.Number(0)
		if err != nil {
			return nil, err
		}
		return Number{Value: fn(x)}, nil
	}
}

func binaryMath(fn func(float64, float64) float64) Func {
	return func(c *Call) (Value, error) {
		x, err := c.Number(0)
		if err != nil {
			return nil, err
		}
		y, err := c.Number(1)
		if err != nil {
			return nil, err
		}
		return Number{Value: fn(x, y)}, nil
	}
}

// inverseTrig guards the [-1, 1] domain of ASIN and ACOS
func inverseTrig(fn func(float64) float64) Func {
	return func(c *Call) (Value, error) {
		x, err := c.Number(0)
		if err != nil {
			return nil, err
		}
		if x < -1 || x > 1 {
			return nil, runtimeErrorf("%s: input must be between -1 and 1", c.Name)
		}
		return Number{Value: fn(x)}, nil
	}
}

func fnSqrt(c *Call) (Value, error) {
	x, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	if x < 0 {
		return nil, runtimeErrorf("SQRT: input must not be negative")
	}
	return Number{Value: math.Sqrt(x)}, nil
}

func fnLn(c *Call) (Value, error) {
	x, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, runtimeErrorf("LN: input must be positive")
	}
	return Number{Value: math.Log(x)}, nil
}

func fnLog10(c *Call) (Value, error) {
	x, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, runtimeErrorf("LOG10: input must be positive")
	}
	return Number{Value: math.Log10(x)}, nil
}

// fnTan rejects odd multiples of pi/2, where the tangent is undefined
func fnTan(c *Call) (Value, error) {
	x, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	k := x/(math.Pi/2) - 1
	if half := k / 2; math.Abs(half-math.Round(half)) < 1e-9 {
		return nil, runtimeErrorf("TAN: input must not be an odd multiple of PI/2")
	}
	return Number{Value: math.Tan(x)}, nil
}

// fnRound rounds half away from zero to the given number of digits
func fnRound(c *Call) (Value, error) {
	x, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	digits, err := c.OptionalNumber(1, 0)
	if err != nil {
		return nil, err
	}
	scale := math.Pow(10, math.Trunc(digits))
	scaled := x * scale
	if math.IsInf(scale, 0) || scale == 0 || math.IsInf(scaled, 0) || math.IsNaN(digits) {
		// beyond float64 precision in either direction
		if digits < 0 {
			return Number{Value: 0}, nil
		}
		return Number{Value: x}, nil
	}
	return Number{Value: math.Round(scaled) / scale}, nil
}

// fnMod follows the % operator, a zero divisor counting as 1
func fnMod(c *Call) (Value, error) {
	x, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	y, err := c.Number(1)
	if err != nil {
		return nil, err
	}
	if y == 0 {
		y = 1
	}
	return Number{Value: math.Mod(x, y)}, nil
}

func fnPi(*Call) (Value, error) {
	return Number{Value: math.Pi}, nil
}
