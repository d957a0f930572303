// Package report writes a machine-readable summary of the job's completed
// steps to a file in the workspace.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'with' block.
type Input struct {
	Path   string `cty:"path"`
	Format string `cty:"format"`
}

// jobReport is the serialized shape of the report file.
type jobReport struct {
	RunID    string                `json:"run_id" yaml:"run_id"`
	Workflow string                `json:"workflow" yaml:"workflow"`
	Job      string                `json:"job" yaml:"job"`
	Steps    []registry.StepRecord `json:"steps" yaml:"steps"`
}

// OnRunReport is the handler for the 'report' action's on_run event.
func OnRunReport(ctx context.Context, sc *registry.StepContext, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("step", sc.StepID)

	content := jobReport{
		RunID:    sc.RunID,
		Workflow: sc.Workflow,
		Job:      sc.Job,
		Steps:    sc.Completed,
	}

	var (
		raw []byte
		err error
	)
	switch input.Format {
	case "yaml":
		raw, err = yaml.Marshal(content)
	case "json":
		raw, err = json.MarshalIndent(content, "", "  ")
	default:
		return cty.NilVal, fmt.Errorf("unknown report format %q: must be 'yaml' or 'json'", input.Format)
	}
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(sc.Workspace, input.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cty.NilVal, fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return cty.NilVal, fmt.Errorf("failed to write report: %w", err)
	}

	logger.Info("Report written.", "path", path, "steps", len(content.Steps))
	return cty.ObjectVal(map[string]cty.Value{
		"path": cty.StringVal(path),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunReport", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunReport,
	})
}
