// Package setuppython locates a Python interpreter matching a requested
// version and wires it into the rest of the job: later steps see it as
// `python` on PATH and through the PYTHON environment variable.
package setuppython

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
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
	Version string `cty:"version"`
}

// OnRunSetupPython is the handler for the 'setup-python' action's on_run event.
func OnRunSetupPython(ctx context.Context, sc *registry.StepContext, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("step", sc.StepID)

	path, err := findInterpreter(input.Version)
	if err != nil {
		return cty.NilVal, err
	}

	actual, err := interpreterVersion(ctx, path)
	if err != nil {
		return cty.NilVal, err
	}
	if input.Version != "" && !versionSatisfies(actual, input.Version) {
		return cty.NilVal, fmt.Errorf("interpreter %s reports version %s, which does not satisfy requested %s", path, actual, input.Version)
	}

	// Shim directory so that plain `python` in later steps resolves to the
	// selected interpreter regardless of what it is named on the host.
	shimDir := filepath.Join(sc.Workspace, ".python-bin")
	if err := os.MkdirAll(shimDir, 0o755); err != nil {
		return cty.NilVal, fmt.Errorf("failed to create interpreter shim directory: %w", err)
	}
	for _, name := range []string{"python", "python3"} {
		shim := filepath.Join(shimDir, name)
		if _, err := os.Lstat(shim); err == nil {
			continue
		}
		if err := os.Symlink(path, shim); err != nil {
			return cty.NilVal, fmt.Errorf("failed to create interpreter shim: %w", err)
		}
	}

	sc.ExportEnv("PYTHON", path)
	sc.ExportEnv("PATH", shimDir+string(os.PathListSeparator)+sc.Env["PATH"])

	logger.Info("Python interpreter ready.", "python", path, "version", actual)
	return cty.ObjectVal(map[string]cty.Value{
		"python":  cty.StringVal(path),
		"version": cty.StringVal(actual),
	}), nil
}

// findInterpreter probes the host for an interpreter binary, most specific
// name first.
func findInterpreter(version string) (string, error) {
	var candidates []string
	if version != "" {
		candidates = append(candidates, "python"+version)
		if major, _, ok := strings.Cut(version, "."); ok {
			candidates = append(candidates, "python"+major)
		}
	}
	candidates = append(candidates, "python3", "python")
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no python interpreter found on PATH (tried %s)", strings.Join(candidates, ", "))
}

// interpreterVersion asks the interpreter what it is.
func interpreterVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to query %s --version: %w", path, err)
	}
	version := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(out)), "Python"))
	if version == "" {
		return "", fmt.Errorf("could not parse version from %q", string(out))
	}
	return strings.TrimSpace(version), nil
}

// versionSatisfies reports whether an actual version like "3.11.4" matches a
// requested prefix like "3.11". Matching is per component, so "3.1" does not
// claim "3.11".
func versionSatisfies(actual, requested string) bool {
	want := strings.Split(requested, ".")
	got := strings.Split(actual, ".")
	if len(got) < len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunSetupPython", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunSetupPython,
	})
}
