package formula

import (
	"strings"
	"unicode/utf8"
)

var stringFunctions = map[string]Builtin{
	"CONCAT": pure(fnConcat),
	"LEFT":   pure(fnLeft),
	"RIGHT":  pure(fnRight),
	"MID":    pure(fnMid),
	"LEN":    pure(fnLen),
	"UPPER":  pure(stringMap(strings.ToUpper)),
	"LOWER":  pure(stringMap(strings.ToLower)),
	"TRIM":   pure(stringMap(strings.TrimSpace)),
}

// text returns a scalar argument rendered as text
func (c *Call) text(index int) (string, error) {
	v, err := c.Arg(index)
	if err != nil {
		return "", err
	}
	if !isScalar(v) {
		return "", c.fail(ErrArgTypeMismatch, index)
	}
	return FormatValue(v), nil
}

// count returns a non-negative integer argument
func (c *Call) count(index int, def float64) (int, error) {
	n, err := c.OptionalNumber(index, def)
	if err != nil {
		return 0, err
	}
	count, ok := toCount(n)
	if !ok {
		return 0, runtimeErrorf("%s: count must be a number", c.Name)
	}
	if count < 0 {
		return 0, runtimeErrorf("%s: count must not be negative", c.Name)
	}
	return count, nil
}

func stringMap(fn func(string) string) Func {
	return func(c *Call) (Value, error) {
		s, err := c.text(0)
		if err != nil {
			return nil, err
		}
		return String{Value: fn(s)}, nil
	}
}

func fnConcat(c *Call) (Value, error) {
	var b strings.Builder
	for i := range c.Args {
		s, err := c.text(i)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return String{Value: b.String()}, nil
}

func fnLeft(c *Call) (Value, error) {
	s, err := c.text(0)
	if err != nil {
		return nil, err
	}
	n, err := c.count(1, 1)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	return String{Value: string(runes[:min(n, len(runes))])}, nil
}

func fnRight(c *Call) (Value, error) {
	s, err := c.text(0)
	if err != nil {
		return nil, err
	}
	n, err := c.count(1, 1)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	return String{Value: string(runes[len(runes)-min(n, len(runes)):])}, nil
}

// fnMid takes a 0-based start like INDEX and MATCH
func fnMid(c *Call) (Value, error) {
	s, err := c.text(0)
	if err != nil {
		return nil, err
	}
	start, err := c.count(1, 0)
	if err != nil {
		return nil, err
	}
	n, err := c.count(2, 1)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if start >= len(runes) {
		return String{Value: ""}, nil
	}
	end := min(start+n, len(runes))
	return String{Value: string(runes[start:end])}, nil
}

func fnLen(c *Call) (Value, error) {
	s, err := c.text(0)
	if err != nil {
		return nil, err
	}
	return Number{Value: float64(utf8.RuneCountInString(s))}, nil
}
