package hclcfg

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/zclconf/go-cty/cty/convert"
)

var actionBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "lifecycle"},
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

// hclLifecycle decodes the `lifecycle` block of an action manifest.
type hclLifecycle struct {
	OnRun string `hcl:"on_run"`
}

// hclInput decodes the body of an `input` block. The type is kept as a raw
// expression and parsed by typeExprToCtyType; the default is evaluated after
// the type is known so it can be converted.
type hclInput struct {
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Optional    bool           `hcl:"optional,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

// hclOutput decodes the body of an `output` block.
type hclOutput struct {
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
}

// translateAction converts one parsed `action` block into a manifest definition.
func (l *Loader) translateAction(ctx context.Context, action *hclAction) (*config.ActionDefinition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Translating action manifest.", "type", action.Type)

	def := &config.ActionDefinition{
		Type:    action.Type,
		Inputs:  make(map[string]*config.InputDefinition),
		Outputs: make(map[string]*config.OutputDefinition),
	}

	content, diags := action.Body.Content(actionBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid action %q: %w", action.Type, diags)
	}

	if attr, ok := content.Attributes["description"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &def.Description); diags.HasErrors() {
			return nil, fmt.Errorf("action %q: invalid description: %w", action.Type, diags)
		}
	}

	for _, block := range content.Blocks {
		switch block.Type {
		case "lifecycle":
			var lc hclLifecycle
			if diags := gohcl.DecodeBody(block.Body, nil, &lc); diags.HasErrors() {
				return nil, fmt.Errorf("action %q: invalid lifecycle: %w", action.Type, diags)
			}
			def.Lifecycle = &config.Lifecycle{OnRun: lc.OnRun}

		case "input":
			name := block.Labels[0]
			var in hclInput
			if diags := gohcl.DecodeBody(block.Body, nil, &in); diags.HasErrors() {
				return nil, fmt.Errorf("action %q: invalid input %q: %w", action.Type, name, diags)
			}

			ctyType, err := typeExprToCtyType(ctx, in.Type)
			if err != nil {
				return nil, fmt.Errorf("action %q, input %q: %w", action.Type, name, err)
			}

			inputDef := &config.InputDefinition{
				Name:        name,
				Type:        ctyType,
				Description: in.Description,
				Optional:    in.Optional,
			}

			if in.Default != nil {
				val, diags := in.Default.Value(nil)
				if diags.HasErrors() {
					return nil, fmt.Errorf("action %q, input %q: invalid default: %w", action.Type, name, diags)
				}
				if !val.IsNull() {
					converted, err := convert.Convert(val, ctyType)
					if err != nil {
						return nil, fmt.Errorf("action %q, input %q: default does not match declared type: %w", action.Type, name, err)
					}
					inputDef.Default = &converted
					// A default implies the argument may be omitted.
					inputDef.Optional = true
				}
			}

			def.Inputs[name] = inputDef

		case "output":
			name := block.Labels[0]
			var out hclOutput
			if diags := gohcl.DecodeBody(block.Body, nil, &out); diags.HasErrors() {
				return nil, fmt.Errorf("action %q: invalid output %q: %w", action.Type, name, diags)
			}
			ctyType, err := typeExprToCtyType(ctx, out.Type)
			if err != nil {
				return nil, fmt.Errorf("action %q, output %q: %w", action.Type, name, err)
			}
			def.Outputs[name] = &config.OutputDefinition{
				Name:        name,
				Type:        ctyType,
				Description: out.Description,
			}
		}
	}

	if def.Lifecycle == nil {
		return nil, fmt.Errorf("action %q declares no lifecycle block", action.Type)
	}
	return def, nil
}
