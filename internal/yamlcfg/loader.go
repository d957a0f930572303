// Package yamlcfg loads workflow definitions written in the YAML dialect
// popularized by hosted CI platforms and translates them into the same
// format-agnostic model the HCL loader produces. Scalar values are wrapped
// in static HCL expressions, so downstream evaluation is uniform across
// syntaxes. Action manifests have no YAML form.
package yamlcfg

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/hclcfg"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every given YAML file as a single workflow document.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "file_count", len(paths))

	model := config.NewModel()
	for _, file := range paths {
		wf, err := loadWorkflowFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("in file %s: %w", file, err)
		}
		model.Workflows = append(model.Workflows, wf)
	}

	logger.Debug("YAML loading complete.", "workflows", len(model.Workflows))
	return model, hclcfg.NewConverter(), nil
}

// yamlStep mirrors one entry of a job's `steps` list.
type yamlStep struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	Run             string            `yaml:"run"`
	Uses            string            `yaml:"uses"`
	With            map[string]any    `yaml:"with"`
	Env             map[string]string `yaml:"env"`
	If              string            `yaml:"if"`
	ContinueOnError bool              `yaml:"continue-on-error"`
	TimeoutMinutes  int               `yaml:"timeout-minutes"`
	WorkingDir      string            `yaml:"working-directory"`
}

// yamlJob mirrors one value of the `jobs` map.
type yamlJob struct {
	Needs []string          `yaml:"needs"`
	Env   map[string]string `yaml:"env"`
	Steps []yamlStep        `yaml:"steps"`
}

// yamlEventFilter mirrors the body of an `on.<event>` entry.
type yamlEventFilter struct {
	Branches       []string `yaml:"branches"`
	BranchesIgnore []string `yaml:"branches-ignore"`
	Paths          []string `yaml:"paths"`
	PathsIgnore    []string `yaml:"paths-ignore"`
}

// yamlWorkflow is the document root. `on` and `jobs` are kept as raw nodes:
// `on` has three accepted shapes and `jobs` is an ordered map.
type yamlWorkflow struct {
	Name string            `yaml:"name"`
	On   yaml.Node         `yaml:"on"`
	Env  map[string]string `yaml:"env"`
	Jobs yaml.Node         `yaml:"jobs"`
}

func loadWorkflowFile(path string) (*config.Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc yamlWorkflow
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("workflow declares no name")
	}

	wf := &config.Workflow{
		Name:   doc.Name,
		Source: path,
		Env:    staticEnv(doc.Env),
	}

	wf.On, err = translateTrigger(&doc.On)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", doc.Name, err)
	}

	wf.Jobs, err = translateJobs(&doc.Jobs)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", doc.Name, err)
	}
	if len(wf.Jobs) == 0 {
		return nil, fmt.Errorf("workflow %q declares no jobs", doc.Name)
	}
	return wf, nil
}

// translateTrigger accepts the three YAML shapes of `on`: a bare event name,
// a list of event names, or a map of event name to filter body.
func translateTrigger(node *yaml.Node) (*config.Trigger, error) {
	if node.Kind == 0 {
		return nil, fmt.Errorf("workflow declares no 'on' trigger and could never run")
	}

	trigger := &config.Trigger{}
	assign := func(name string, filter *config.EventFilter) error {
		switch name {
		case "push":
			trigger.Push = filter
		case "pull_request":
			trigger.PullRequest = filter
		default:
			return fmt.Errorf("unsupported trigger event %q", name)
		}
		return nil
	}

	switch node.Kind {
	case yaml.ScalarNode:
		if err := assign(node.Value, &config.EventFilter{}); err != nil {
			return nil, err
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := assign(item.Value, &config.EventFilter{}); err != nil {
				return nil, err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			var decoded yamlEventFilter
			if val.Kind == yaml.MappingNode {
				if err := val.Decode(&decoded); err != nil {
					return nil, fmt.Errorf("invalid '%s' filter: %w", key.Value, err)
				}
			}
			if err := assign(key.Value, &config.EventFilter{
				Branches:       decoded.Branches,
				BranchesIgnore: decoded.BranchesIgnore,
				Paths:          decoded.Paths,
				PathsIgnore:    decoded.PathsIgnore,
			}); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported 'on' shape")
	}

	return trigger, nil
}

// translateJobs walks the `jobs` mapping in document order.
func translateJobs(node *yaml.Node) ([]*config.Job, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("'jobs' must be a mapping")
	}

	var jobs []*config.Job
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, body := node.Content[i].Value, node.Content[i+1]

		var decoded yamlJob
		if err := body.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("invalid job %q: %w", name, err)
		}

		job := &config.Job{
			Name:  name,
			Needs: decoded.Needs,
			Env:   staticEnv(decoded.Env),
		}
		for idx, ys := range decoded.Steps {
			step, err := translateStep(idx, ys)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", name, err)
			}
			job.Steps = append(job.Steps, step)
		}
		if len(job.Steps) == 0 {
			return nil, fmt.Errorf("job %q declares no steps", name)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func translateStep(index int, ys yamlStep) (*config.Step, error) {
	id := ys.ID
	if id == "" {
		id = fmt.Sprintf("step-%d", index)
	}

	if (ys.Run == "") == (ys.Uses == "") {
		return nil, fmt.Errorf("step %q must set exactly one of 'run' or 'uses'", id)
	}

	step := &config.Step{
		ID:   id,
		Name: ys.Name,
		Uses: ys.Uses,
		Env:  staticEnv(ys.Env),
	}
	if ys.Run != "" {
		step.Run = staticString(ys.Run)
	}
	if len(ys.With) > 0 {
		step.With = make(map[string]hcl.Expression, len(ys.With))
		for key, val := range ys.With {
			expr, err := staticAny(val)
			if err != nil {
				return nil, fmt.Errorf("step %q, argument %q: %w", id, key, err)
			}
			step.With[key] = expr
		}
	}
	if ys.ContinueOnError {
		step.ContinueOnError = hcl.StaticExpr(cty.True, hcl.Range{})
	}
	if ys.TimeoutMinutes > 0 {
		step.Timeout = staticString(fmt.Sprintf("%dm", ys.TimeoutMinutes))
	}
	if ys.WorkingDir != "" {
		step.Workdir = staticString(ys.WorkingDir)
	}
	// YAML `if` expressions are platform-specific; they are not translated.
	if ys.If != "" {
		return nil, fmt.Errorf("step %q: 'if' conditions are not supported in YAML workflows, use HCL", id)
	}
	return step, nil
}

func staticString(s string) hcl.Expression {
	return hcl.StaticExpr(cty.StringVal(s), hcl.Range{})
}

func staticEnv(env map[string]string) map[string]hcl.Expression {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]hcl.Expression, len(env))
	for k, v := range env {
		out[k] = staticString(v)
	}
	return out
}

// staticAny lifts a decoded YAML scalar or string list into a static
// expression. Nested structures are rejected; action inputs are flat.
func staticAny(v any) (hcl.Expression, error) {
	switch tv := v.(type) {
	case string:
		return staticString(tv), nil
	case bool:
		return hcl.StaticExpr(cty.BoolVal(tv), hcl.Range{}), nil
	case int:
		return hcl.StaticExpr(cty.NumberIntVal(int64(tv)), hcl.Range{}), nil
	case float64:
		return hcl.StaticExpr(cty.NumberFloatVal(tv), hcl.Range{}), nil
	case []any:
		items := make([]cty.Value, 0, len(tv))
		for _, item := range tv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list arguments must contain only strings, got %T", item)
			}
			items = append(items, cty.StringVal(s))
		}
		if len(items) == 0 {
			return hcl.StaticExpr(cty.ListValEmpty(cty.String), hcl.Range{}), nil
		}
		return hcl.StaticExpr(cty.ListVal(items), hcl.Range{}), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", v)
	}
}
