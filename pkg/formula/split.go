package formula

import "strings"

// Formula is the parsed shape of a cell's raw text "=default=primary". The
// default variant is only used at step 0.
type Formula struct {
	Default    string
	HasDefault bool
	Primary    string
}

// ForStep selects the formula text evaluated at the given step
func (f Formula) ForStep(step int) string {
	if step == 0 && f.HasDefault {
		return f.Default
	}
	return f.Primary
}

// IsFormula reports whether raw cell text is a formula rather than a literal
func IsFormula(text string) bool {
	return strings.HasPrefix(text, "=")
}

// GetFormula strips the leading '=' and splits the text at its first
// top-level '=' that is not part of ==, !=, <= or >=. Text inside string
// literals is never split.
func GetFormula(text string) Formula {
	body := strings.TrimPrefix(text, "=")
	inString := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString || ch != '=' {
			continue
		}
		if i+1 < len(body) && body[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.IndexByte("!<>=", body[i-1]) >= 0 {
			continue
		}
		return Formula{Default: body[:i], HasDefault: true, Primary: body[i+1:]}
	}
	return Formula{Primary: body}
}
