package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/dag"
	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// shellActionType backs bare `run =` steps: they are sugar for the shell
// action with the command line as its sole argument.
const shellActionType = "shell"

// executeStep runs a single step and returns its record plus the cty value
// exposed to later steps as `steps.<id>`. A failure of a continue_on_error
// step is recorded but not returned as an error.
func (e *Executor) executeStep(ctx context.Context, node *dag.Node, step *config.Step, wsDir string, env map[string]string, stepResults map[string]cty.Value) (registry.StepRecord, cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("job", node.ID, "step", step.ID)
	record := registry.StepRecord{ID: step.ID}

	evalCtx := e.evalContext(env, node.Job.Name, wsDir, stepResults)

	if step.If != nil {
		ok, err := evalBool(step.If, evalCtx)
		if err != nil {
			record.Outcome = dag.Failed.String()
			return record, stepValue(record, cty.NilVal), err
		}
		if !ok {
			logger.Info("⏭️ Step condition evaluated false, skipping.")
			record.Outcome = dag.Skipped.String()
			return record, stepValue(record, cty.NilVal), nil
		}
	}

	actionType := step.Uses
	args := step.With
	if step.Run != nil {
		actionType = shellActionType
		args = map[string]hcl.Expression{"command": step.Run}
	}

	def := e.registry.DefinitionFor(actionType)
	if def == nil {
		record.Outcome = dag.Failed.String()
		err := fmt.Errorf("unknown action type '%s'", actionType)
		return record, stepValue(record, cty.NilVal), err
	}
	handler := e.registry.HandlerRegistry[def.Lifecycle.OnRun]
	if handler == nil {
		record.Outcome = dag.Failed.String()
		err := fmt.Errorf("handler '%s' not registered", def.Lifecycle.OnRun)
		return record, stepValue(record, cty.NilVal), err
	}

	// Step-scoped environment layered over the job's.
	stepEnv := make(map[string]string, len(env))
	for k, v := range env {
		stepEnv[k] = v
	}
	if err := evalEnvInto(stepEnv, step.Env, evalCtx); err != nil {
		record.Outcome = dag.Failed.String()
		return record, stepValue(record, cty.NilVal), err
	}

	workdir := wsDir
	if step.Workdir != nil {
		rel, err := evalString(step.Workdir, evalCtx)
		if err != nil {
			record.Outcome = dag.Failed.String()
			return record, stepValue(record, cty.NilVal), err
		}
		workdir = filepath.Join(wsDir, rel)
	}

	sc := &registry.StepContext{
		RunID:     e.runID,
		Workflow:  node.Workflow.Name,
		Job:       node.Job.Name,
		StepID:    step.ID,
		Workspace: wsDir,
		Workdir:   workdir,
		Env:       stepEnv,
		Stdout:    e.outW,
		Stderr:    e.outW,
		Completed: completedRecords(stepResults, node, record.ID),
	}

	inputStruct := handler.NewInput()
	if inputStruct != nil {
		if err := e.converter.DecodeBody(ctx, inputStruct, args, def.Inputs, evalCtx); err != nil {
			record.Outcome = dag.Failed.String()
			return record, stepValue(record, cty.NilVal), fmt.Errorf("failed to decode arguments: %w", err)
		}
	}

	stepCtx := ctx
	var cancel context.CancelFunc
	if step.Timeout != nil {
		raw, err := evalString(step.Timeout, evalCtx)
		if err != nil {
			record.Outcome = dag.Failed.String()
			return record, stepValue(record, cty.NilVal), err
		}
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			record.Outcome = dag.Failed.String()
			return record, stepValue(record, cty.NilVal), fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("▶️ Starting step", "action", actionType)
	started := time.Now()
	output, runErr := callHandler(stepCtx, handler, sc, inputStruct)
	record.Duration = time.Since(started)

	// Environment exported by the handler outlives the step.
	for k, v := range sc.Exported() {
		env[k] = v
	}

	if runErr != nil {
		var exitErr *registry.ExitCodeError
		if errors.As(runErr, &exitErr) {
			record.ExitCode = exitErr.Code
		}
		record.Outcome = dag.Failed.String()
		record.Error = runErr.Error()

		if step.ContinueOnError != nil {
			cont, err := evalBool(step.ContinueOnError, evalCtx)
			if err != nil {
				return record, stepValue(record, cty.NilVal), err
			}
			if cont {
				logger.Warn("Step failed but continue_on_error is set.", "error", runErr)
				return record, stepValue(record, cty.NilVal), nil
			}
		}
		logger.Error("❌ Step failed.", "error", runErr)
		return record, stepValue(record, cty.NilVal), runErr
	}

	ctyOutput, err := e.converter.ToCtyValue(output)
	if err != nil {
		record.Outcome = dag.Failed.String()
		return record, stepValue(record, cty.NilVal), fmt.Errorf("failed to convert step output: %w", err)
	}

	logger.Info("✅ Finished step", "duration", record.Duration)
	record.Outcome = dag.Done.String()
	return record, stepValue(record, ctyOutput), nil
}

// callHandler dispatches the registered handler function reflectively.
func callHandler(ctx context.Context, handler *registry.RegisteredAction, sc *registry.StepContext, inputStruct any) (any, error) {
	handlerFunc := reflect.ValueOf(handler.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(sc)}

	if inputStruct == nil {
		inputType := handlerFunc.Type().In(2)
		callArgs = append(callArgs, reflect.Zero(inputType))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	output, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return nil, errResult.(error)
	}
	return output, nil
}

// stepValue builds the `steps.<id>` object exposed to later expressions.
func stepValue(record registry.StepRecord, output cty.Value) cty.Value {
	vals := map[string]cty.Value{
		"outcome":   cty.StringVal(record.Outcome),
		"exit_code": cty.NumberIntVal(int64(record.ExitCode)),
	}
	if output != cty.NilVal {
		vals["output"] = output
	}
	return cty.ObjectVal(vals)
}

// completedRecords reconstructs the ordered records of finished steps for
// the step context handed to handlers.
func completedRecords(stepResults map[string]cty.Value, node *dag.Node, currentID string) []registry.StepRecord {
	var out []registry.StepRecord
	for _, step := range node.Job.Steps {
		if step.ID == currentID {
			break
		}
		val, ok := stepResults[step.ID]
		if !ok || val == cty.NilVal {
			continue
		}
		rec := registry.StepRecord{ID: step.ID}
		if val.Type().IsObjectType() && val.Type().HasAttribute("outcome") {
			rec.Outcome = val.GetAttr("outcome").AsString()
		}
		if val.Type().IsObjectType() && val.Type().HasAttribute("exit_code") {
			code, _ := val.GetAttr("exit_code").AsBigFloat().Int64()
			rec.ExitCode = int(code)
		}
		out = append(out, rec)
	}
	return out
}
