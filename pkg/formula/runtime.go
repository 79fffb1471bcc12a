package formula

import (
	"math"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ValueMode selects what a cell literal evaluates to
type ValueMode int

const (
	// ModeResolved yields the cell's value
	ModeResolved ValueMode = iota
	// ModeIdentity yields a CellRef; used for arguments of functions that
	// walk a cell's history themselves
	ModeIdentity
)

// Env is everything one evaluation may read. The runtime never writes to it.
type Env struct {
	Step        int
	Steps       int
	History     History
	DataHistory History
	Variables   map[string]Value
	Random      RandomSource
}

// StepCount is the total number of steps of the run, at least Step+1
func (env *Env) StepCount() int {
	return max(env.Steps, env.Step+1)
}

// lookup returns what a reference to the cell sees at the current step: the
// value computed this step if the cell was already visited, otherwise the
// last value committed before it. dataHistory is only consulted when the live
// history has nothing.
func (env *Env) lookup(id string) (Value, bool) {
	if v, ok := env.History.ValueAtStep(id, env.Step); ok {
		return v, true
	}
	if v, ok := env.History.LastCommittedBefore(id, env.Step); ok {
		return v, true
	}
	if v, ok := env.DataHistory.ValueAtStep(id, env.Step); ok {
		return v, true
	}
	return env.DataHistory.LastCommittedBefore(id, env.Step)
}

// resolve returns the normalized value of a cell; absent cells read as 0
func (env *Env) resolve(c Coords) Value {
	v, ok := env.lookup(CellCoordsToID(c))
	if !ok {
		return Number{Value: 0}
	}
	return normalize(v)
}

// CellValue resolves a single cell reference. A cell holding an Error fails
// the referencing formula.
func (env *Env) CellValue(c Coords) (Value, error) {
	v := env.resolve(c)
	if e, ok := v.(Error); ok {
		return nil, runtimeErrorf("Cell %s has an error: %s", CellCoordsToID(c), e.Message)
	}
	return v, nil
}

// cellHistory returns the recorded values of a cell, live history first
func (env *Env) cellHistory(id string) []Value {
	if env.History.Has(id) {
		return env.History[id]
	}
	return env.DataHistory[id]
}

// Evaluator walks expressions against an Env and dispatches function calls
type Evaluator struct {
	functions map[string]Builtin
	names     []string
}

// NewEvaluator creates an evaluator over the built-in function table
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithFunctions(Builtins())
}

// NewEvaluatorWithFunctions creates an evaluator over a custom function table
func NewEvaluatorWithFunctions(functions map[string]Builtin) *Evaluator {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Evaluator{functions: functions, names: names}
}

// DefaultEvaluator is the global evaluator instance
var DefaultEvaluator = NewEvaluator()

// Evaluate computes an expression at a step using the default evaluator
func Evaluate(expr Expression, history History, step int, dataHistory History) (Value, error) {
	return DefaultEvaluator.Eval(expr, &Env{Step: step, History: history, DataHistory: dataHistory})
}

// Run is Evaluate followed by FormatValue
func Run(expr Expression, history History, step int, dataHistory History) (string, error) {
	v, err := Evaluate(expr, history, step, dataHistory)
	if err != nil {
		return "", err
	}
	return FormatValue(v), nil
}

// Eval computes an expression in resolved mode
func (e *Evaluator) Eval(expr Expression, env *Env) (Value, error) {
	return e.eval(expr, env, ModeResolved)
}

// HasFunction reports whether name is callable
func (e *Evaluator) HasFunction(name string) bool {
	_, ok := e.functions[strings.ToUpper(name)]
	return ok
}

// FunctionNames lists callable names in sorted order
func (e *Evaluator) FunctionNames() []string {
	return e.names
}

// Suggest returns the closest function name to an unknown one, or ""
func (e *Evaluator) Suggest(name string) string {
	ranks := fuzzy.RankFindFold(name, e.names)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func (e *Evaluator) eval(expr Expression, env *Env, mode ValueMode) (Value, error) {
	switch n := expr.(type) {
	case NumericLiteral:
		return Number{Value: n.Value}, nil
	case BooleanLiteral:
		return Boolean{Value: n.Value}, nil
	case StringLiteral:
		return String{Value: n.Value}, nil
	case Identifier:
		if v, ok := env.Variables[n.Name]; ok {
			return v, nil
		}
		return nil, runtimeErrorf("Variable '%s' does not exist", n.Name)
	case CellLiteral:
		if mode == ModeIdentity {
			return CellRef{Row: n.Row.Index, Col: n.Col.Index}, nil
		}
		return env.CellValue(n.Coords())
	case CellRangeLiteral:
		return CellRange{
			Col1: n.Left.Col.Index, Row1: n.Left.Row.Index,
			Col2: n.Right.Col.Index, Row2: n.Right.Row.Index,
		}, nil
	case BinaryExpression:
		return e.evalBinary(n, env, mode)
	case UnaryExpression:
		return e.evalUnary(n, env, mode)
	case RelationalExpression:
		return e.evalRelational(n, env, mode)
	case CallExpression:
		return e.evalCall(n, env)
	default:
		return nil, runtimeErrorf("Unsupported expression %T", expr)
	}
}

func (e *Evaluator) evalBinary(n BinaryExpression, env *Env, mode ValueMode) (Value, error) {
	left, err := e.eval(n.Left, env, mode)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.Right, env, mode)
	if err != nil {
		return nil, err
	}
	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, runtimeErrorf("Operator '%s' expects Number operands, got %s and %s", n.Op, left.Kind(), right.Kind())
	}

	switch n.Op {
	case "+":
		return Number{Value: l.Value + r.Value}, nil
	case "-":
		return Number{Value: l.Value - r.Value}, nil
	case "*":
		return Number{Value: l.Value * r.Value}, nil
	case "/":
		// a zero divisor is replaced by 1
		if r.Value == 0 {
			return Number{Value: l.Value}, nil
		}
		return Number{Value: l.Value / r.Value}, nil
	case "%":
		if r.Value == 0 {
			return Number{Value: math.Mod(l.Value, 1)}, nil
		}
		return Number{Value: math.Mod(l.Value, r.Value)}, nil
	default:
		return nil, runtimeErrorf("Unsupported binary operator '%s'", n.Op)
	}
}

func (e *Evaluator) evalUnary(n UnaryExpression, env *Env, mode ValueMode) (Value, error) {
	operand, err := e.eval(n.Operand, env, mode)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "-":
		if num, ok := operand.(Number); ok {
			return Number{Value: -num.Value}, nil
		}
		return nil, runtimeErrorf("Operator '-' expects a Number operand, got %s", operand.Kind())
	case "!":
		if b, ok := operand.(Boolean); ok {
			return Boolean{Value: !b.Value}, nil
		}
		return nil, runtimeErrorf("Operator '!' expects a Boolean operand, got %s", operand.Kind())
	default:
		return nil, runtimeErrorf("Unsupported unary operator '%s'", n.Op)
	}
}

func (e *Evaluator) evalRelational(n RelationalExpression, env *Env, mode ValueMode) (Value, error) {
	left, err := e.eval(n.Left, env, mode)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.Right, env, mode)
	if err != nil {
		return nil, err
	}
	result, err := compareValues(n.Op, left, right)
	if err != nil {
		return nil, err
	}
	return Boolean{Value: result}, nil
}

func isScalar(v Value) bool {
	switch v.Kind() {
	case KindNumber, KindBoolean, KindString:
		return true
	}
	return false
}

// compareValues applies a relational operator. Operands must share a scalar
// kind, except that == and != may compare a String with another scalar by
// its text.
func compareValues(op string, left, right Value) (bool, error) {
	var cmp int
	switch {
	case left.Kind() != right.Kind() || !isScalar(left):
		mixedText := isScalar(left) && isScalar(right) &&
			(left.Kind() == KindString || right.Kind() == KindString)
		if !mixedText || (op != "==" && op != "!=") {
			return false, runtimeErrorf("LHS and RHS types do not match")
		}
		cmp = strings.Compare(FormatValue(left), FormatValue(right))
	case left.Kind() == KindNumber:
		cmp = compareFloats(left.(Number).Value, right.(Number).Value)
	case left.Kind() == KindBoolean:
		cmp = compareFloats(boolToFloat(left.(Boolean).Value), boolToFloat(right.(Boolean).Value))
	default:
		cmp = strings.Compare(left.(String).Value, right.(String).Value)
	}

	switch op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, runtimeErrorf("Unsupported relational operator '%s'", op)
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (e *Evaluator) evalCall(n CallExpression, env *Env) (Value, error) {
	builtin, ok := e.functions[n.Name]
	if !ok {
		if suggestion := e.Suggest(n.Name); suggestion != "" {
			return nil, runtimeErrorf("Function '%s' does not exist (did you mean %s?)", n.Name, suggestion)
		}
		return nil, runtimeErrorf("Function '%s' does not exist", n.Name)
	}

	args := make([]Value, len(n.Args))
	for i, arg := range n.Args {
		mode := ModeResolved
		if i < builtin.CellArgs {
			mode = ModeIdentity
		}
		v, err := e.eval(arg, env, mode)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return builtin.Fn(&Call{Name: n.Name, Args: args, Env: env})
}
