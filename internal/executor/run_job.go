package executor

import (
	"context"
	"fmt"

	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/dag"
	"github.com/zclconf/go-cty/cty"
)

// executeJobNode runs all steps of one job sequentially inside an isolated
// workspace. The returned JobResult is always populated, even on failure.
func (e *Executor) executeJobNode(ctx context.Context, node *dag.Node) (*JobResult, error) {
	logger := ctxlog.FromContext(ctx).With("job", node.ID)
	result := &JobResult{
		NodeID:     node.ID,
		Workflow:   node.Workflow.Name,
		Job:        node.Job.Name,
		Conclusion: dag.Failed.String(),
	}

	// Layer the environment: process < workflow < job. Step env and
	// exported variables are applied later, per step.
	env := environMap()
	if err := evalEnvInto(env, node.Workflow.Env, e.evalContext(env, "", "", nil)); err != nil {
		return result, fmt.Errorf("workflow '%s': %w", node.Workflow.Name, err)
	}
	if err := evalEnvInto(env, node.Job.Env, e.evalContext(env, "", "", nil)); err != nil {
		return result, fmt.Errorf("job '%s': %w", node.Job.Name, err)
	}

	if node.Job.If != nil {
		ok, err := evalBool(node.Job.If, e.evalContext(env, "", "", nil))
		if err != nil {
			return result, fmt.Errorf("job '%s' condition: %w", node.Job.Name, err)
		}
		if !ok {
			result.Conclusion = dag.Skipped.String()
			return result, nil
		}
	}

	wsDir, err := e.workspaces.JobDir(node.Workflow.Name, node.Job.Name)
	if err != nil {
		return result, err
	}

	logger.Info("▶️ Starting job", "workspace", wsDir)

	stepResults := make(map[string]cty.Value)
	for _, step := range node.Job.Steps {
		record, outcomeVal, err := e.executeStep(ctx, node, step, wsDir, env, stepResults)
		result.Steps = append(result.Steps, record)
		stepResults[step.ID] = outcomeVal
		if err != nil {
			return result, fmt.Errorf("step '%s': %w", step.ID, err)
		}
	}

	logger.Info("✅ Finished job")
	result.Conclusion = dag.Done.String()
	return result, nil
}
