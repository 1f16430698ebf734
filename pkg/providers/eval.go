package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
)

// EvaluateHook returns an Evaluate hook backed by expr-lang. Expressions are
// opaque strings evaluated against the current variables and must produce a
// boolean: vars["name"] != "", status == "ready", len(items) > 1, etc.
func EvaluateHook() func(expression string, rc *engine.RunnerContext) (bool, error) {
	return func(expression string, rc *engine.RunnerContext) (bool, error) {
		return Evaluate(expression, rc.Vars)
	}
}

// Evaluate compiles and runs a boolean expression against a variable map.
// An empty expression is always true.
func Evaluate(expression string, vars map[string]string) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return true, nil
	}

	env := buildEnv(vars)
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile expression %q: %w", expression, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval expression %q: %w", expression, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not return bool (got %T: %v)", expression, output, output)
	}
	return result, nil
}

// buildEnv exposes variables to expressions both as top-level identifiers
// and under a vars map (for names that aren't valid identifiers).
func buildEnv(vars map[string]string) map[string]interface{} {
	env := make(map[string]interface{}, len(vars)+1)
	varsView := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		coerced := parseValue(v)
		env[k] = coerced
		varsView[k] = coerced
	}
	env["vars"] = varsView
	return env
}

// parseValue attempts to parse a variable value as a JSON array or object so
// expression functions like len work on structured captures. Otherwise the
// original string is returned.
func parseValue(v string) interface{} {
	t := strings.TrimSpace(v)
	if len(t) > 1 && t[0] == '[' {
		var arr []interface{}
		if err := json.Unmarshal([]byte(t), &arr); err == nil {
			return arr
		}
	}
	if len(t) > 1 && t[0] == '{' {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(t), &obj); err == nil {
			return obj
		}
	}
	return v
}
