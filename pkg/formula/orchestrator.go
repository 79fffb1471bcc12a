package formula

import "fmt"

// RunOptions carries the optional inputs of an evaluation run
type RunOptions struct {
	// DataHistory holds imported series, read when a cell has no live history
	DataHistory History
	// Variables binds identifiers such as named constants
	Variables map[string]Value
	// Random overrides the source used by RAND, RANDBETWEEN and CHOICE
	Random RandomSource
}

type parsed struct {
	expr Expression
	err  error
}

// EvaluateCells runs the ordered cells for stepCount steps with the default
// evaluator
func EvaluateCells(order []string, stepCount int, lookup func(id string) string) History {
	return DefaultEvaluator.EvaluateCells(order, stepCount, lookup, RunOptions{})
}

// EvaluateCells evaluates every cell of order once per step, in order, and
// appends each result to the returned history. A failing (cell, step) pair
// records an Error value and the run goes on. Empty cells record nothing;
// literal text is coerced like any stored value.
func (e *Evaluator) EvaluateCells(order []string, stepCount int, lookup func(id string) string, opts RunOptions) History {
	history := NewHistory()
	env := &Env{
		Steps:       stepCount,
		History:     history,
		DataHistory: opts.DataHistory,
		Variables:   opts.Variables,
		Random:      opts.Random,
	}
	cache := make(map[string]parsed)
	parse := func(text string) (Expression, error) {
		p, ok := cache[text]
		if !ok {
			p.expr, p.err = Parse(text)
			cache[text] = p
		}
		return p.expr, p.err
	}

	for step := 0; step < stepCount; step++ {
		env.Step = step
		for _, id := range order {
			text := lookup(id)
			if text == "" {
				continue
			}
			if !IsFormula(text) {
				history.Append(id, coerceText(text))
				continue
			}
			history.Append(id, e.evaluateFormula(GetFormula(text).ForStep(step), env, parse))
		}
	}
	return history
}

func (e *Evaluator) evaluateFormula(text string, env *Env, parse func(string) (Expression, error)) (result Value) {
	// a panicking builtin fails its own cell and step, never the run
	defer func() {
		if r := recover(); r != nil {
			result = Error{Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	expr, err := parse(text)
	if err != nil {
		return Error{Message: err.Error()}
	}
	v, err := e.Eval(expr, env)
	if err != nil {
		return Error{Message: err.Error()}
	}
	return v
}
