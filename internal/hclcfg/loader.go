package hclcfg

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all supported top-level blocks from any file. Workflow
// definitions and action manifests may live in the same file or be split
// across many; origin does not matter.
type fileRoot struct {
	Workflows []*hclWorkflow `hcl:"workflow,block"`
	Actions   []*hclAction   `hcl:"action,block"`
}

// hclWorkflow is the shallow decode target for a `workflow` block.
type hclWorkflow struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// hclAction is the shallow decode target for an `action` block.
type hclAction struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

// Load parses every given HCL file and translates the discovered blocks into
// the format-agnostic model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "file_count", len(paths))

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, file := range paths {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, wf := range root.Workflows {
			translated, err := l.translateWorkflow(ctx, wf, file)
			if err != nil {
				return nil, nil, fmt.Errorf("in file %s: %w", file, err)
			}
			model.Workflows = append(model.Workflows, translated)
		}
		for _, action := range root.Actions {
			def, err := l.translateAction(ctx, action)
			if err != nil {
				return nil, nil, fmt.Errorf("in file %s: %w", file, err)
			}
			model.Actions[def.Type] = def
		}
	}

	logger.Debug("HCL loading complete.", "workflows", len(model.Workflows), "actions", len(model.Actions))
	return model, NewConverter(), nil
}
