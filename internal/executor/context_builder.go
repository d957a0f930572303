package executor

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// evalContext assembles the variable scope visible to workflow expressions:
// the triggering event, the merged environment, the current job, and the
// outcomes of the steps completed so far.
func (e *Executor) evalContext(env map[string]string, jobName, jobWorkspace string, stepResults map[string]cty.Value) *hcl.EvalContext {
	vars := map[string]cty.Value{
		"event": e.eventValue(),
		"env":   envValue(env),
	}
	if jobName != "" {
		vars["job"] = cty.ObjectVal(map[string]cty.Value{
			"name":      cty.StringVal(jobName),
			"workspace": cty.StringVal(jobWorkspace),
		})
	}
	if len(stepResults) > 0 {
		vars["steps"] = cty.ObjectVal(stepResults)
	}
	return &hcl.EvalContext{Variables: vars}
}

// eventValue lifts the triggering event into the expression scope.
func (e *Executor) eventValue() cty.Value {
	files := cty.ListValEmpty(cty.String)
	if len(e.event.Files) > 0 {
		vals := make([]cty.Value, 0, len(e.event.Files))
		for _, f := range e.event.Files {
			vals = append(vals, cty.StringVal(f))
		}
		files = cty.ListVal(vals)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"name":   cty.StringVal(string(e.event.Kind)),
		"ref":    cty.StringVal(e.event.Ref),
		"branch": cty.StringVal(e.event.Branch),
		"files":  files,
	})
}

// envValue converts an environment map into a cty object. Keys are sorted
// only for deterministic error messages; cty objects are unordered.
func envValue(env map[string]string) cty.Value {
	if len(env) == 0 {
		return cty.EmptyObjectVal
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make(map[string]cty.Value, len(env))
	for _, k := range keys {
		vals[k] = cty.StringVal(env[k])
	}
	return cty.ObjectVal(vals)
}

// environMap snapshots the process environment into a mutable map.
func environMap() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			out[kv[:idx]] = kv[idx+1:]
		}
	}
	return out
}

// evalEnvInto evaluates an env expression block and overlays it onto env.
func evalEnvInto(env map[string]string, block map[string]hcl.Expression, evalCtx *hcl.EvalContext) error {
	for key, expr := range block {
		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return fmt.Errorf("failed to evaluate env %q: %w", key, diags)
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("env %q must be a string: %w", key, err)
		}
		env[key] = str.AsString()
	}
	return nil
}

// evalBool evaluates an expression to a boolean.
func evalBool(expr hcl.Expression, evalCtx *hcl.EvalContext) (bool, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, fmt.Errorf("failed to evaluate condition: %w", diags)
	}
	boolVal, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("condition must be a boolean: %w", err)
	}
	return boolVal.True(), nil
}

// evalString evaluates an expression to a string.
func evalString(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", fmt.Errorf("failed to evaluate expression: %w", diags)
	}
	strVal, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("expression must be a string: %w", err)
	}
	return strVal.AsString(), nil
}
