package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalAt(t *testing.T, formula string, history History, step int) (Value, error) {
	t.Helper()
	expr, err := Parse(formula)
	require.NoError(t, err)
	return Evaluate(expr, history, step, nil)
}

func TestEvaluate_Values(t *testing.T) {
	history := History{
		"A1": {Number{Value: 5}},
		"A2": {String{Value: "12"}},
		"A3": {String{Value: "true"}},
		"A4": {String{Value: "hello"}},
	}

	testCases := []struct {
		name     string
		formula  string
		expected Value
	}{
		{name: "Precedence", formula: "2 + 3 * 4", expected: Number{Value: 14}},
		{name: "Division by zero uses 1", formula: "10 / 0", expected: Number{Value: 10}},
		{name: "Modulo by zero uses 1", formula: "7.5 % 0", expected: Number{Value: 0.5}},
		{name: "Modulo", formula: "7 % 4", expected: Number{Value: 3}},
		{name: "Negated cell", formula: "-A1", expected: Number{Value: -5}},
		{name: "Numeric text", formula: "A2 * 2", expected: Number{Value: 24}},
		{name: "Boolean text", formula: "!A3", expected: Boolean{Value: false}},
		{name: "Plain text", formula: "A4", expected: String{Value: "hello"}},
		{name: "Absent cell", formula: "Z99 + 1", expected: Number{Value: 1}},
		{name: "Range", formula: "A1:B2", expected: CellRange{Col1: 0, Row1: 0, Col2: 1, Row2: 1}},
		{name: "Less than", formula: "1 < 2", expected: Boolean{Value: true}},
		{name: "Boolean order", formula: "TRUE > FALSE", expected: Boolean{Value: true}},
		{name: "String order", formula: `"abc" < "abd"`, expected: Boolean{Value: true}},
		{name: "String equals number text", formula: `"1" == 1`, expected: Boolean{Value: true}},
		{name: "String not equal number", formula: `"a" != 1`, expected: Boolean{Value: true}},
		{name: "Not equal", formula: "A1 != 5", expected: Boolean{Value: false}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := evalAt(t, tc.formula, history, 1)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	history := History{
		"A1": {Error{Message: "boom"}},
	}

	testCases := []struct {
		name    string
		formula string
		message string
	}{
		{name: "Chained relational", formula: "1 < 2 < 3", message: "LHS and RHS types do not match"},
		{name: "Ordered mixed kinds", formula: `"a" < 1`, message: "LHS and RHS types do not match"},
		{name: "Unbound identifier", formula: "FOO + 1", message: "Variable 'FOO' does not exist"},
		{name: "Unknown function", formula: "ZZZ(1)", message: "Function 'ZZZ' does not exist"},
		{name: "Unknown function with suggestion", formula: "SUMHIST(A2)", message: "Function 'SUMHIST' does not exist (did you mean SUMHISTORY?)"},
		{name: "Errored cell", formula: "A1 + 1", message: "Cell A1 has an error: boom"},
		{name: "Negate boolean", formula: "-TRUE", message: "Operator '-' expects a Number operand, got Boolean"},
		{name: "Not a number", formula: "!1", message: "Operator '!' expects a Boolean operand, got Number"},
		{name: "String arithmetic", formula: `"a" + 1`, message: "Operator '+' expects Number operands, got String and Number"},
		{name: "Point arithmetic", formula: "POINT(1, 2) + 1", message: "Operator '+' expects Number operands, got Point and Number"},
		{name: "Point comparison", formula: "POINT(1, 2) == POINT(1, 2)", message: "LHS and RHS types do not match"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := evalAt(t, tc.formula, history, 1)
			require.Error(t, err)

			var runtimeErr *RuntimeError
			require.ErrorAs(t, err, &runtimeErr)
			assert.Equal(t, tc.message, err.Error())
		})
	}
}

func TestEvaluate_StepViews(t *testing.T) {
	history := History{"A1": {Number{Value: 1}, Number{Value: 2}}}

	// A1 was already computed at step 1: the fresh value is seen
	v, err := evalAt(t, "A1", history, 1)
	require.NoError(t, err)
	assert.Equal(t, Number{Value: 2}, v)

	// at step 2 A1 is not computed yet: the previous value is seen
	v, err = evalAt(t, "A1", history, 2)
	require.NoError(t, err)
	assert.Equal(t, Number{Value: 2}, v)

	v, err = evalAt(t, "A1", history, 0)
	require.NoError(t, err)
	assert.Equal(t, Number{Value: 1}, v)
}

func TestEvaluate_DataHistoryFallback(t *testing.T) {
	data := History{"B1": {Number{Value: 10}, Number{Value: 20}, Number{Value: 30}}}
	live := History{"C1": {Number{Value: 1}}}

	expr, err := Parse("B1 + C1")
	require.NoError(t, err)

	v, err := Evaluate(expr, live, 2, data)
	require.NoError(t, err)
	assert.Equal(t, Number{Value: 31}, v)

	// live history shadows imported data
	live["B1"] = []Value{Number{Value: 100}}
	v, err = Evaluate(expr, live, 1, data)
	require.NoError(t, err)
	assert.Equal(t, Number{Value: 101}, v)
}

func TestEvaluator_Variables(t *testing.T) {
	expr, err := Parse("rate * 4")
	require.NoError(t, err)

	v, err := DefaultEvaluator.Eval(expr, &Env{
		History:   NewHistory(),
		Variables: map[string]Value{"RATE": Number{Value: 0.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, Number{Value: 2}, v)
}

func TestEvaluator_IdentityMode(t *testing.T) {
	eval := NewEvaluatorWithFunctions(map[string]Builtin{
		"ID": {CellArgs: 1, Fn: func(c *Call) (Value, error) {
			ref, err := c.Cell(0)
			if err != nil {
				return nil, err
			}
			return String{Value: ref.ID()}, nil
		}},
		"ECHO": pure(func(c *Call) (Value, error) { return c.Arg(0) }),
	})
	history := History{"B2": {Number{Value: 7}}}

	expr, err := Parse("ID(B2)")
	require.NoError(t, err)
	v, err := eval.Eval(expr, &Env{Step: 1, History: history})
	require.NoError(t, err)
	assert.Equal(t, String{Value: "B2"}, v)

	// nested calls evaluate their own arguments in resolved mode
	expr, err = Parse("ECHO(B2)")
	require.NoError(t, err)
	v, err = eval.Eval(expr, &Env{Step: 1, History: history})
	require.NoError(t, err)
	assert.Equal(t, Number{Value: 7}, v)

	expr, err = Parse("ID(ECHO(B2))")
	require.NoError(t, err)
	_, err = eval.Eval(expr, &Env{Step: 1, History: history})
	assert.ErrorIs(t, err, ErrArgTypeMismatch)
}

func TestRun_Formats(t *testing.T) {
	testCases := []struct {
		formula  string
		expected string
	}{
		{"1 / 3", "0.333"},
		{"1 / 4", "0.25"},
		{"3 * 2", "6"},
		{"1 == 1", "TRUE"},
		{`CONCAT("a", 1)`, "a1"},
		{"POINT(1, 2.5)", "(1, 2.5)"},
	}

	for _, tc := range testCases {
		t.Run(tc.formula, func(t *testing.T) {
			expr, err := Parse(tc.formula)
			require.NoError(t, err)

			out, err := Run(expr, NewHistory(), 0, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestEvaluator_Suggest(t *testing.T) {
	assert.Equal(t, "SUMHISTORY", DefaultEvaluator.Suggest("SUMHIST"))
	assert.Equal(t, "", DefaultEvaluator.Suggest("ZZZ"))
	assert.True(t, DefaultEvaluator.HasFunction("sum"))
	assert.False(t, DefaultEvaluator.HasFunction("ZZZ"))
}

func BenchmarkEvaluate(b *testing.B) {
	expr, _ := Parse("IF(SUM(A1:C3) > 10, A1 * 2 + PREV(B2), MAX(C1:C3))")
	history := NewHistory()
	for _, id := range []string{"A1", "A2", "A3", "B1", "B2", "B3", "C1", "C2", "C3"} {
		history.Append(id, Number{Value: 3})
		history.Append(id, Number{Value: 4})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(expr, history, 1, nil)
	}
}
