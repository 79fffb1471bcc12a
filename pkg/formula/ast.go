package formula

import (
	"strconv"
	"strings"
)

// Expression is a node of the formula AST. The String form re-renders the
// node as formula text with explicit parentheses around operators.
type Expression interface {
	String() string
	expression() // sealed marker
}

// NumericLiteral is a number written in the formula
type NumericLiteral struct {
	Value float64
}

// BooleanLiteral is TRUE or FALSE
type BooleanLiteral struct {
	Value bool
}

// StringLiteral is a double-quoted text
type StringLiteral struct {
	Value string
}

// Identifier is a bare name that is neither a function call nor a cell
type Identifier struct {
	Name string
}

// CellAxis is one zero-based coordinate of a cell reference. Fixed records a
// '$' anchor.
type CellAxis struct {
	Index int
	Fixed bool
}

// CellLiteral references a single cell
type CellLiteral struct {
	Row CellAxis
	Col CellAxis
}

// CellRangeLiteral is a rectangular block "A1:B3"
type CellRangeLiteral struct {
	Left  CellLiteral
	Right CellLiteral
}

// BinaryExpression is an arithmetic operation: + - * / %
type BinaryExpression struct {
	Left  Expression
	Right Expression
	Op    string
}

// UnaryExpression is numeric negation "-" or boolean negation "!"
type UnaryExpression struct {
	Operand Expression
	Op      string
}

// RelationalExpression compares two operands: == != < <= > >=
type RelationalExpression struct {
	Left  Expression
	Right Expression
	Op    string
}

// CallExpression invokes a built-in function. Name is upper-cased.
type CallExpression struct {
	Name string
	Args []Expression
}

func (NumericLiteral) expression()       {}
func (BooleanLiteral) expression()       {}
func (StringLiteral) expression()        {}
func (Identifier) expression()           {}
func (CellLiteral) expression()          {}
func (CellRangeLiteral) expression()     {}
func (BinaryExpression) expression()     {}
func (UnaryExpression) expression()      {}
func (RelationalExpression) expression() {}
func (CallExpression) expression()       {}

func (n NumericLiteral) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

func (n BooleanLiteral) String() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

func (n StringLiteral) String() string {
	return `"` + n.Value + `"`
}

func (n Identifier) String() string {
	return n.Name
}

// Coords drops the anchors
func (n CellLiteral) Coords() Coords {
	return Coords{Row: n.Row.Index, Col: n.Col.Index}
}

// ID is the CellId the literal points at
func (n CellLiteral) ID() string {
	return CellCoordsToID(n.Coords())
}

func (n CellLiteral) String() string {
	var b strings.Builder
	if n.Col.Fixed {
		b.WriteByte('$')
	}
	b.WriteString(ColumnIndexToText(n.Col.Index))
	if n.Row.Fixed {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(n.Row.Index + 1))
	return b.String()
}

func (n CellRangeLiteral) String() string {
	return n.Left.String() + ":" + n.Right.String()
}

func (n BinaryExpression) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n UnaryExpression) String() string {
	return n.Op + n.Operand.String()
}

func (n RelationalExpression) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n CallExpression) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}
