package formula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"golang.org/x/exp/maps"
)

// ResolveConstants evaluates named constant definitions into variables that
// formulas can reference by name. A definition is an expr-lang expression and
// may use constants defined before or after it, e.g. {"RATE": "0.05",
// "MONTHLY": "RATE / 12"}. Names are case-insensitive.
func ResolveConstants(defs map[string]string) (map[string]Value, error) {
	env := make(map[string]interface{}, len(defs)*2)
	values := make(map[string]Value, len(defs))

	pending := maps.Keys(defs)
	sort.Strings(pending)

	byUpper := make(map[string]string, len(pending))
	for _, name := range pending {
		upper := strings.ToUpper(name)
		if first, dup := byUpper[upper]; dup {
			return nil, fmt.Errorf("constant '%s' is defined twice, as '%s' and '%s'", upper, first, name)
		}
		byUpper[upper] = name
	}

	for len(pending) > 0 {
		var (
			retry   []string
			lastErr error
		)
		for _, name := range pending {
			v, err := evalConstant(defs[name], env)
			if err != nil {
				retry = append(retry, name)
				lastErr = fmt.Errorf("failed to resolve constant '%s': %w", name, err)
				continue
			}
			upper := strings.ToUpper(name)
			values[upper] = v
			env[name] = constantNative(v)
			env[upper] = constantNative(v)
		}
		if len(retry) == len(pending) {
			return nil, lastErr
		}
		pending = retry
	}
	return values, nil
}

func evalConstant(expression string, env map[string]interface{}) (Value, error) {
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression '%s': %w", expression, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate constant: %w", err)
	}

	switch v := result.(type) {
	case float64:
		return Number{Value: v}, nil
	case float32:
		return Number{Value: float64(v)}, nil
	case int:
		return Number{Value: float64(v)}, nil
	case int64:
		return Number{Value: float64(v)}, nil
	case bool:
		return Boolean{Value: v}, nil
	case string:
		return String{Value: v}, nil
	default:
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}
}

func constantNative(v Value) interface{} {
	switch v := v.(type) {
	case Number:
		return v.Value
	case Boolean:
		return v.Value
	case String:
		return v.Value
	}
	return nil
}
