package hclcfg

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/pipewright/internal/config"
)

var workflowBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "on"},
		{Type: "env"},
		{Type: "job", LabelNames: []string{"name"}},
	},
}

var onBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "push"},
		{Type: "pull_request"},
	},
}

var jobBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "needs"},
		{Name: "if"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "env"},
		{Type: "step", LabelNames: []string{"id"}},
	},
}

var stepBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "run"},
		{Name: "uses"},
		{Name: "if"},
		{Name: "continue_on_error"},
		{Name: "timeout"},
		{Name: "workdir"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "with"},
		{Type: "env"},
	},
}

// hclEventFilter decodes the body of a push / pull_request block. Filter
// patterns are static lists: they gate whether anything runs at all, so no
// evaluation context exists yet when they are consulted.
type hclEventFilter struct {
	Branches       []string `hcl:"branches,optional"`
	BranchesIgnore []string `hcl:"branches_ignore,optional"`
	Paths          []string `hcl:"paths,optional"`
	PathsIgnore    []string `hcl:"paths_ignore,optional"`
}

// translateWorkflow converts one parsed `workflow` block into the model.
func (l *Loader) translateWorkflow(ctx context.Context, wf *hclWorkflow, source string) (*config.Workflow, error) {
	out := &config.Workflow{
		Name:   wf.Name,
		Source: source,
	}

	content, diags := wf.Body.Content(workflowBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid workflow %q: %w", wf.Name, diags)
	}

	for _, block := range content.Blocks {
		switch block.Type {
		case "on":
			trigger, err := translateTrigger(block)
			if err != nil {
				return nil, fmt.Errorf("workflow %q: %w", wf.Name, err)
			}
			out.On = trigger
		case "env":
			env, err := attributeMap(block.Body)
			if err != nil {
				return nil, fmt.Errorf("workflow %q: %w", wf.Name, err)
			}
			out.Env = env
		case "job":
			job, err := l.translateJob(ctx, block)
			if err != nil {
				return nil, fmt.Errorf("workflow %q: %w", wf.Name, err)
			}
			out.Jobs = append(out.Jobs, job)
		}
	}

	if out.On == nil {
		return nil, fmt.Errorf("workflow %q declares no 'on' block and could never run", wf.Name)
	}
	if len(out.Jobs) == 0 {
		return nil, fmt.Errorf("workflow %q declares no jobs", wf.Name)
	}
	return out, nil
}

// translateTrigger converts the `on` block into the trigger model.
func translateTrigger(block *hcl.Block) (*config.Trigger, error) {
	content, diags := block.Body.Content(onBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid 'on' block: %w", diags)
	}

	trigger := &config.Trigger{}
	for _, eventBlock := range content.Blocks {
		var decoded hclEventFilter
		if diags := gohcl.DecodeBody(eventBlock.Body, nil, &decoded); diags.HasErrors() {
			return nil, fmt.Errorf("invalid '%s' filter: %w", eventBlock.Type, diags)
		}
		filter := &config.EventFilter{
			Branches:       decoded.Branches,
			BranchesIgnore: decoded.BranchesIgnore,
			Paths:          decoded.Paths,
			PathsIgnore:    decoded.PathsIgnore,
		}
		switch eventBlock.Type {
		case "push":
			trigger.Push = filter
		case "pull_request":
			trigger.PullRequest = filter
		}
	}

	if trigger.Push == nil && trigger.PullRequest == nil {
		return nil, fmt.Errorf("'on' block declares no events")
	}
	return trigger, nil
}

// translateJob converts one `job` block into the model.
func (l *Loader) translateJob(ctx context.Context, block *hcl.Block) (*config.Job, error) {
	job := &config.Job{Name: block.Labels[0]}

	content, diags := block.Body.Content(jobBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid job %q: %w", job.Name, diags)
	}

	if attr, ok := content.Attributes["needs"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &job.Needs); diags.HasErrors() {
			return nil, fmt.Errorf("job %q: invalid 'needs': %w", job.Name, diags)
		}
	}
	if attr, ok := content.Attributes["if"]; ok {
		job.If = attr.Expr
	}

	for _, inner := range content.Blocks {
		switch inner.Type {
		case "env":
			env, err := attributeMap(inner.Body)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", job.Name, err)
			}
			job.Env = env
		case "step":
			step, err := translateStep(inner)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", job.Name, err)
			}
			job.Steps = append(job.Steps, step)
		}
	}

	if len(job.Steps) == 0 {
		return nil, fmt.Errorf("job %q declares no steps", job.Name)
	}
	return job, nil
}

// translateStep converts one `step` block into the model and enforces the
// run/uses exclusivity rule.
func translateStep(block *hcl.Block) (*config.Step, error) {
	step := &config.Step{ID: block.Labels[0]}

	content, diags := block.Body.Content(stepBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid step %q: %w", step.ID, diags)
	}

	if attr, ok := content.Attributes["name"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &step.Name); diags.HasErrors() {
			return nil, fmt.Errorf("step %q: invalid 'name': %w", step.ID, diags)
		}
	}
	if attr, ok := content.Attributes["run"]; ok {
		step.Run = attr.Expr
	}
	if attr, ok := content.Attributes["uses"]; ok {
		if diags := gohcl.DecodeExpression(attr.Expr, nil, &step.Uses); diags.HasErrors() {
			return nil, fmt.Errorf("step %q: invalid 'uses': %w", step.ID, diags)
		}
	}
	if attr, ok := content.Attributes["if"]; ok {
		step.If = attr.Expr
	}
	if attr, ok := content.Attributes["continue_on_error"]; ok {
		step.ContinueOnError = attr.Expr
	}
	if attr, ok := content.Attributes["timeout"]; ok {
		step.Timeout = attr.Expr
	}
	if attr, ok := content.Attributes["workdir"]; ok {
		step.Workdir = attr.Expr
	}

	for _, inner := range content.Blocks {
		switch inner.Type {
		case "with":
			args, err := attributeMap(inner.Body)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", step.ID, err)
			}
			step.With = args
		case "env":
			env, err := attributeMap(inner.Body)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", step.ID, err)
			}
			step.Env = env
		}
	}

	if (step.Run == nil) == (step.Uses == "") {
		return nil, fmt.Errorf("step %q must set exactly one of 'run' or 'uses'", step.ID)
	}
	return step, nil
}

// attributeMap flattens a block body into a name→expression map, deferring
// all evaluation.
func attributeMap(body hcl.Body) (map[string]hcl.Expression, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid attribute block: %w", diags)
	}
	out := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		out[name] = attr.Expr
	}
	return out, nil
}
