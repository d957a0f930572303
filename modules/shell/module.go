// Package shell runs a command line through the system shell. Bare `run`
// attributes on steps are sugar for this action.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"reflect"

	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'with' block.
type Input struct {
	Command string `cty:"command"`
}

// OnRunShell is the handler for the 'shell' action's on_run event. The
// command inherits the step's directory and merged environment, and its
// output streams straight to the run's writer.
func OnRunShell(ctx context.Context, sc *registry.StepContext, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("step", sc.StepID)
	logger.Info("Running command.", "command", input.Command)

	cmd := exec.CommandContext(ctx, "sh", "-c", input.Command)
	cmd.Dir = sc.Workdir
	cmd.Env = sc.EnvList()
	cmd.Stdout = sc.Stdout
	cmd.Stderr = sc.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return cty.NilVal, &registry.ExitCodeError{Command: input.Command, Code: exitErr.ExitCode()}
		}
		return cty.NilVal, fmt.Errorf("failed to run command: %w", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"exit_code": cty.NumberIntVal(0),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunShell", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunShell,
	})
}
