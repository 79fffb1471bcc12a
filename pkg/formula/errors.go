package formula

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by the argument helpers of the function library
var (
	ErrNotEnoughArgs   = errors.New("not enough function arguments")
	ErrArgTypeMismatch = errors.New("function argument type mismatch")
)

// LexError reports a malformed token
type LexError struct {
	Pos int
	Msg string
}

func (e *LexError) Error() string {
	return e.Msg
}

// ParseError reports an unexpected token or end of input
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return e.Msg
}

// CycleError reports a dependency cycle of length >= 2. CellID is the cell at
// which the cycle was detected.
type CycleError struct {
	CellID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("Circular dependency detected at %s", e.CellID)
}

// RuntimeError is raised while walking an expression
type RuntimeError struct {
	Msg string
	Err error
}

func (e *RuntimeError) Error() string {
	return e.Msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func runtimeErrorf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}
