package hclcfg

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter implements config.Converter on top of cty. It binds evaluated
// step arguments to handler input structs and lifts native handler results
// back into cty values.
type Converter struct{}

// NewConverter creates a new cty-backed converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeBody evaluates each declared input against the step's `with`
// arguments and assigns the result to the matching struct field (matched by
// `cty` tag). Manifest defaults fill omitted optional arguments; omitted
// required arguments and undeclared arguments are errors.
func (c *Converter) DecodeBody(
	ctx context.Context,
	inputStruct any,
	args map[string]hcl.Expression,
	defs map[string]*config.InputDefinition,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)

	ptr := reflect.ValueOf(inputStruct)
	if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("input target must be a pointer to struct, got %T", inputStruct)
	}
	target := ptr.Elem()

	fields := fieldsByTag(target.Type())

	for name := range args {
		if _, declared := defs[name]; !declared {
			return fmt.Errorf("unknown argument %q", name)
		}
	}

	for name, def := range defs {
		var val cty.Value
		switch expr, provided := args[name]; {
		case provided:
			evaluated, diags := expr.Value(evalCtx)
			if diags.HasErrors() {
				return fmt.Errorf("failed to evaluate argument %q: %w", name, diags)
			}
			val = evaluated
		case def.Default != nil:
			val = *def.Default
		case def.Optional:
			continue
		default:
			return fmt.Errorf("required argument %q was not provided", name)
		}

		if !def.Type.Equals(cty.DynamicPseudoType) {
			converted, err := convert.Convert(val, def.Type)
			if err != nil {
				return fmt.Errorf("argument %q: %w", name, err)
			}
			val = converted
		}

		field, ok := fields[name]
		if !ok {
			// Registry validation rejects this at startup; reaching it here
			// means the handler was registered without a manifest check.
			logger.Warn("No struct field for declared input.", "input", name)
			continue
		}
		if err := assignField(target.Field(field.Index[0]), val); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}

	return nil
}

// ToCtyValue converts a native Go value returned by a handler into a
// cty.Value. Handlers returning cty.Value directly pass through untouched.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	if cv, ok := v.(cty.Value); ok {
		return cv, nil
	}
	impliedType, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot imply cty type for %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, impliedType)
}

// fieldsByTag indexes a struct's exported fields by their cty tag name.
func fieldsByTag(t reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("cty"), ",")[0]
		if tagName != "" && tagName != "-" {
			out[tagName] = field
		}
	}
	return out
}

// assignField decodes a cty value into a single struct field. Fields typed
// cty.Value receive the value verbatim; null values leave the zero value.
func assignField(field reflect.Value, val cty.Value) error {
	if field.Type() == reflect.TypeOf(cty.Value{}) {
		if val.IsKnown() {
			field.Set(reflect.ValueOf(val))
		}
		return nil
	}
	if val.IsNull() || !val.IsKnown() {
		return nil
	}
	return gocty.FromCtyValue(val, field.Addr().Interface())
}
