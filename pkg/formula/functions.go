package formula

import (
	"fmt"
	"math"
	"math/rand"
)

// maxCount caps numeric arguments used as lengths, offsets or indexes so the
// conversion to int never overflows
const maxCount = math.MaxInt32

// Func implements a built-in function
type Func func(call *Call) (Value, error)

// Builtin is an entry of the function table. The first CellArgs arguments
// are evaluated in identity mode.
type Builtin struct {
	Fn       Func
	CellArgs int
}

// RandomSource provides random numbers in [0, 1)
type RandomSource interface {
	Float64() float64
}

type defaultRandom struct{}

func (defaultRandom) Float64() float64 {
	return rand.Float64()
}

// Call is one invocation of a built-in: the evaluated arguments plus the
// evaluation context
type Call struct {
	Name string
	Args []Value
	Env  *Env
}

func (c *Call) fail(sentinel error, index int) error {
	return &RuntimeError{
		Msg: fmt.Sprintf("%s: %v (argument %d)", c.Name, sentinel, index+1),
		Err: sentinel,
	}
}

// Arg returns the argument at index or ErrNotEnoughArgs
func (c *Call) Arg(index int) (Value, error) {
	if index >= len(c.Args) {
		return nil, c.fail(ErrNotEnoughArgs, index)
	}
	return c.Args[index], nil
}

// Number returns a Number argument
func (c *Call) Number(index int) (float64, error) {
	v, err := c.Arg(index)
	if err != nil {
		return 0, err
	}
	n, ok := v.(Number)
	if !ok {
		return 0, c.fail(ErrArgTypeMismatch, index)
	}
	return n.Value, nil
}

// Bool returns a Boolean argument
func (c *Call) Bool(index int) (bool, error) {
	v, err := c.Arg(index)
	if err != nil {
		return false, err
	}
	b, ok := v.(Boolean)
	if !ok {
		return false, c.fail(ErrArgTypeMismatch, index)
	}
	return b.Value, nil
}

// String returns a String argument
func (c *Call) String(index int) (string, error) {
	v, err := c.Arg(index)
	if err != nil {
		return "", err
	}
	s, ok := v.(String)
	if !ok {
		return "", c.fail(ErrArgTypeMismatch, index)
	}
	return s.Value, nil
}

// CellRange returns a CellRange argument
func (c *Call) CellRange(index int) (CellRange, error) {
	v, err := c.Arg(index)
	if err != nil {
		return CellRange{}, err
	}
	r, ok := v.(CellRange)
	if !ok {
		return CellRange{}, c.fail(ErrArgTypeMismatch, index)
	}
	return r, nil
}

// Cell returns an argument evaluated in identity mode
func (c *Call) Cell(index int) (CellRef, error) {
	v, err := c.Arg(index)
	if err != nil {
		return CellRef{}, err
	}
	ref, ok := v.(CellRef)
	if !ok {
		return CellRef{}, c.fail(ErrArgTypeMismatch, index)
	}
	return ref, nil
}

// toCount truncates n to an int clamped to [-maxCount, maxCount]; NaN is rejected
func toCount(n float64) (int, bool) {
	if math.IsNaN(n) {
		return 0, false
	}
	return int(math.Max(-maxCount, math.Min(n, maxCount))), true
}

// OptionalNumber returns a Number argument or def when it is absent
func (c *Call) OptionalNumber(index int, def float64) (float64, error) {
	if index >= len(c.Args) {
		return def, nil
	}
	return c.Number(index)
}

// random returns the run's random source
func (c *Call) random() RandomSource {
	if c.Env.Random != nil {
		return c.Env.Random
	}
	return defaultRandom{}
}

// Builtins returns a fresh copy of the built-in function table
func Builtins() map[string]Builtin {
	table := make(map[string]Builtin)
	for _, group := range []map[string]Builtin{
		logicalFunctions,
		lookupFunctions,
		historyFunctions,
		mathFunctions,
		randomFunctions,
		stringFunctions,
		stepFunctions,
		visualFunctions,
	} {
		for name, fn := range group {
			table[name] = fn
		}
	}
	return table
}

func pure(fn Func) Builtin {
	return Builtin{Fn: fn}
}
