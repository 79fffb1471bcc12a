package formula

import (
	"strings"

	"github.com/xuri/efp"
)

// LintIssue is an unknown function name found in a formula
type LintIssue struct {
	Name       string `json:"name"`
	Suggestion string `json:"suggestion,omitempty"`
}

// LintReport summarizes what a formula calls and reads without evaluating it
type LintReport struct {
	Formula    string      `json:"formula"`
	Functions  []string    `json:"functions"`
	References []string    `json:"references"`
	Unknown    []LintIssue `json:"unknown"`
	ParseError string      `json:"parse_error,omitempty"`
}

// Valid reports whether the formula parses and only calls known functions
func (r *LintReport) Valid() bool {
	return r.ParseError == "" && len(r.Unknown) == 0
}

// Lint inspects a cell's formula text with the default evaluator
func Lint(text string) *LintReport {
	return DefaultEvaluator.Lint(text)
}

// Lint tokenizes both variants of a formula with the Excel formula
// tokenizer, collecting called functions and referenced cells, and checks
// that each variant parses.
func (e *Evaluator) Lint(text string) *LintReport {
	report := &LintReport{Formula: text, Functions: []string{}, References: []string{}, Unknown: []LintIssue{}}
	if !IsFormula(text) {
		return report
	}
	f := GetFormula(text)
	parts := []string{f.Primary}
	if f.HasDefault {
		parts = []string{f.Default, f.Primary}
	}

	seen := make(map[string]bool)
	for _, part := range parts {
		if _, err := Parse(part); err != nil && report.ParseError == "" {
			report.ParseError = err.Error()
		}

		ps := efp.ExcelParser()
		for _, token := range ps.Parse(part) {
			switch {
			case token.TType == efp.TokenTypeFunction && token.TSubType == efp.TokenSubTypeStart:
				name := strings.ToUpper(token.TValue)
				if seen["f:"+name] {
					continue
				}
				seen["f:"+name] = true
				report.Functions = append(report.Functions, name)
				if !e.HasFunction(name) {
					report.Unknown = append(report.Unknown, LintIssue{Name: name, Suggestion: e.Suggest(name)})
				}
			case token.TType == efp.TokenTypeOperand && token.TSubType == efp.TokenSubTypeRange:
				ref := strings.ToUpper(strings.ReplaceAll(token.TValue, "$", ""))
				if seen["r:"+ref] {
					continue
				}
				seen["r:"+ref] = true
				report.References = append(report.References, ref)
			}
		}
	}
	return report
}
