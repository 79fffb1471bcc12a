package formula

import (
	"fmt"
	"strconv"
)

// Parse tokenizes and parses formula text (leading '=' already stripped)
func Parse(formula string) (Expression, error) {
	tokens, err := Tokenize(formula)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses a token stream produced by Tokenize. Precedence, lowest
// to highest: relational, additive, multiplicative, call, cell range, primary.
func ParseTokens(tokens []Token) (Expression, error) {
	c := &cursor{tokens: tokens}
	expr, err := c.parseRelational()
	if err != nil {
		return nil, err
	}
	if tok := c.peek(); tok.Kind != TokenEOF {
		return nil, unexpected(tok)
	}
	return expr, nil
}

// cursor is the parse position over one token slice; each Parse call owns
// its own cursor.
type cursor struct {
	tokens []Token
	pos    int
}

func (c *cursor) peek() Token {
	if c.pos < len(c.tokens) {
		return c.tokens[c.pos]
	}
	return Token{Kind: TokenEOF}
}

func (c *cursor) next() Token {
	tok := c.peek()
	if c.pos < len(c.tokens) {
		c.pos++
	}
	return tok
}

func (c *cursor) expect(kind TokenKind) (Token, error) {
	tok := c.next()
	if tok.Kind != kind {
		return tok, unexpected(tok)
	}
	return tok, nil
}

func unexpected(tok Token) *ParseError {
	if tok.Text == "" {
		return &ParseError{Msg: fmt.Sprintf("Unexpected token %s", tok.Kind)}
	}
	return &ParseError{Msg: fmt.Sprintf("Unexpected token %s '%s'", tok.Kind, tok.Text)}
}

// parseRelational left-associates: 1 < 2 < 3 is (1 < 2) < 3
func (c *cursor) parseRelational() (Expression, error) {
	left, err := c.parseAdditive()
	if err != nil {
		return nil, err
	}
	for c.peek().Kind == TokenRelationalOp {
		op := c.next().Text
		right, err := c.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = RelationalExpression{Left: left, Right: right, Op: op}
	}
	return left, nil
}

func (c *cursor) parseAdditive() (Expression, error) {
	left, err := c.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := c.peek()
		if tok.Kind != TokenBinaryOp || (tok.Text != "+" && tok.Text != "-") {
			return left, nil
		}
		c.next()
		right, err := c.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpression{Left: left, Right: right, Op: tok.Text}
	}
}

func (c *cursor) parseMultiplicative() (Expression, error) {
	left, err := c.parseCall()
	if err != nil {
		return nil, err
	}
	for {
		tok := c.peek()
		if tok.Kind != TokenBinaryOp || (tok.Text != "*" && tok.Text != "/" && tok.Text != "%") {
			return left, nil
		}
		c.next()
		right, err := c.parseCall()
		if err != nil {
			return nil, err
		}
		left = BinaryExpression{Left: left, Right: right, Op: tok.Text}
	}
}

func (c *cursor) parseCall() (Expression, error) {
	expr, err := c.parseCellRange()
	if err != nil {
		return nil, err
	}
	ident, ok := expr.(Identifier)
	if !ok || c.peek().Kind != TokenOpenParen {
		return expr, nil
	}
	c.next()

	call := CallExpression{Name: ident.Name}
	if c.peek().Kind == TokenCloseParen {
		c.next()
		return call, nil
	}
	for {
		arg, err := c.parseRelational()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if c.peek().Kind == TokenComma {
			c.next()
			continue
		}
		if _, err := c.expect(TokenCloseParen); err != nil {
			return nil, err
		}
		return call, nil
	}
}

func (c *cursor) parseCellRange() (Expression, error) {
	left, err := c.parsePrimary()
	if err != nil {
		return nil, err
	}
	if c.peek().Kind != TokenColon {
		return left, nil
	}
	start, ok := left.(CellLiteral)
	if !ok {
		return nil, unexpected(c.peek())
	}
	c.next()
	end, err := c.parseCellIdentifier()
	if err != nil {
		return nil, err
	}
	return CellRangeLiteral{Left: start, Right: end}, nil
}

// parseCellIdentifier reads the right side of a range. It never recurses so
// ranges of ranges cannot form.
func (c *cursor) parseCellIdentifier() (CellLiteral, error) {
	tok := c.next()
	if tok.Kind != TokenIdentifier || !isCellReference(tok.Text) {
		return CellLiteral{}, unexpected(tok)
	}
	lit, err := parseCellAxes(tok.Text)
	if err != nil {
		return CellLiteral{}, &ParseError{Msg: err.Error()}
	}
	return lit, nil
}

func (c *cursor) parsePrimary() (Expression, error) {
	tok := c.next()
	switch tok.Kind {
	case TokenNumber:
		value, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("Invalid number '%s'", tok.Text)}
		}
		return NumericLiteral{Value: value}, nil
	case TokenBoolean:
		return BooleanLiteral{Value: tok.Text == "TRUE"}, nil
	case TokenString:
		return StringLiteral{Value: tok.Text}, nil
	case TokenIdentifier:
		if isCellReference(tok.Text) {
			lit, err := parseCellAxes(tok.Text)
			if err != nil {
				return nil, &ParseError{Msg: err.Error()}
			}
			return lit, nil
		}
		return Identifier{Name: tok.Text}, nil
	case TokenOpenParen:
		expr, err := c.parseRelational()
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(TokenCloseParen); err != nil {
			return nil, err
		}
		return expr, nil
	case TokenBinaryOp, TokenUnaryOp:
		if tok.Text != "-" && tok.Text != "!" {
			return nil, &ParseError{Msg: fmt.Sprintf("Unknown unary operator '%s'", tok.Text)}
		}
		operand, err := c.parseCall()
		if err != nil {
			return nil, err
		}
		return UnaryExpression{Operand: operand, Op: tok.Text}, nil
	default:
		return nil, unexpected(tok)
	}
}
