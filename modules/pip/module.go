// Package pip installs Python packages with the interpreter selected by the
// setup-python action.
package pip

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"reflect"
	"strings"

	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'with' block.
type Input struct {
	Packages []string `cty:"packages"`
	Python   string   `cty:"python"`
}

// OnRunPip is the handler for the 'pip' action's on_run event. It shells out
// to `<python> -m pip install` so the packages land in whatever environment
// the interpreter belongs to.
func OnRunPip(ctx context.Context, sc *registry.StepContext, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("step", sc.StepID)

	if len(input.Packages) == 0 {
		return cty.NilVal, errors.New("no packages given to install")
	}

	python := input.Python
	if python == "" {
		python = sc.Env["PYTHON"]
	}
	if python == "" {
		python = "python3"
	}

	args := append([]string{"-m", "pip", "install"}, input.Packages...)
	logger.Info("Installing packages.", "python", python, "packages", strings.Join(input.Packages, ", "))

	cmd := exec.CommandContext(ctx, python, args...)
	cmd.Dir = sc.Workdir
	cmd.Env = sc.EnvList()
	cmd.Stdout = sc.Stdout
	cmd.Stderr = sc.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return cty.NilVal, &registry.ExitCodeError{Command: "pip install", Code: exitErr.ExitCode()}
		}
		return cty.NilVal, fmt.Errorf("failed to run pip: %w", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"installed": cty.NumberIntVal(int64(len(input.Packages))),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunPip", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunPip,
	})
}
