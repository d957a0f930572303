package hclcfg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// loadManifest parses an HCL snippet through the real loader and returns the
// resulting model.
func loadManifest(t *testing.T, src string) *config.Model {
	t.Helper()
	path := writeFile(t, t.TempDir(), "manifest.hcl", src)
	model, _, err := NewLoader().Load(testCtx(), path)
	require.NoError(t, err)
	return model
}

// literalExpr parses a single HCL expression from source.
func literalExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "parse %q: %s", src, diags.Error())
	return expr
}

func TestLoad_Workflow(t *testing.T) {
	const src = `
workflow "python-lint" {
  on {
    push {
      branches = ["**"]
      paths    = ["**.py"]
    }
    pull_request {
      paths = ["**.py"]
    }
  }

  env {
    PYTHONUNBUFFERED = "1"
  }

  job "lint" {
    step "checkout" {
      uses = "checkout"
    }
    step "black" {
      run = "black --check ."
    }
  }

  job "notify" {
    needs = ["lint"]
    step "ping" {
      uses = "webhook"
      with {
        url = "http://localhost:9999/status"
      }
      continue_on_error = true
      timeout           = "30s"
    }
  }
}
`
	path := writeFile(t, t.TempDir(), "lint.hcl", src)

	model, conv, err := NewLoader().Load(testCtx(), path)
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Len(t, model.Workflows, 1)

	wf := model.Workflows[0]
	require.Equal(t, "python-lint", wf.Name)
	require.Equal(t, path, wf.Source)

	require.NotNil(t, wf.On.Push)
	require.Equal(t, []string{"**"}, wf.On.Push.Branches)
	require.Equal(t, []string{"**.py"}, wf.On.Push.Paths)
	require.NotNil(t, wf.On.PullRequest)
	require.Empty(t, wf.On.PullRequest.Branches)

	require.Contains(t, wf.Env, "PYTHONUNBUFFERED")

	require.Len(t, wf.Jobs, 2)
	lint := wf.Job("lint")
	require.NotNil(t, lint)
	require.Len(t, lint.Steps, 2)
	require.Equal(t, "checkout", lint.Steps[0].Uses)
	require.NotNil(t, lint.Steps[1].Run)

	notify := wf.Job("notify")
	require.NotNil(t, notify)
	require.Equal(t, []string{"lint"}, notify.Needs)
	step := notify.Steps[0]
	require.Equal(t, "webhook", step.Uses)
	require.Contains(t, step.With, "url")
	require.NotNil(t, step.ContinueOnError)
	require.NotNil(t, step.Timeout)
}

func TestLoad_ActionManifest(t *testing.T) {
	const src = `
action "shell" {
  description = "Run a command line in the job workspace."

  lifecycle {
    on_run = "OnRunShell"
  }

  input "command" {
    type = string
  }

  input "interpreter" {
    type     = string
    default  = "sh"
  }

  output "exit_code" {
    type = number
  }
}
`
	path := writeFile(t, t.TempDir(), "manifest.hcl", src)

	model, _, err := NewLoader().Load(testCtx(), path)
	require.NoError(t, err)
	require.Contains(t, model.Actions, "shell")

	def := model.Actions["shell"]
	require.Equal(t, "OnRunShell", def.Lifecycle.OnRun)

	cmd := def.Inputs["command"]
	require.NotNil(t, cmd)
	require.True(t, cmd.Type.Equals(cty.String))
	require.False(t, cmd.Optional)
	require.Nil(t, cmd.Default)

	interp := def.Inputs["interpreter"]
	require.NotNil(t, interp)
	require.True(t, interp.Optional, "an input with a default is implicitly optional")
	require.Equal(t, "sh", interp.Default.AsString())

	require.Contains(t, def.Outputs, "exit_code")
}

func TestLoad_StepMustPickRunOrUses(t *testing.T) {
	const src = `
workflow "bad" {
  on {
    push {}
  }
  job "j" {
    step "s" {
      run  = "true"
      uses = "shell"
    }
  }
}
`
	path := writeFile(t, t.TempDir(), "bad.hcl", src)

	_, _, err := NewLoader().Load(testCtx(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one of 'run' or 'uses'")
}

func TestLoad_WorkflowWithoutTriggersIsRejected(t *testing.T) {
	const src = `
workflow "silent" {
  job "j" {
    step "s" {
      run = "true"
    }
  }
}
`
	path := writeFile(t, t.TempDir(), "silent.hcl", src)

	_, _, err := NewLoader().Load(testCtx(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no 'on' block")
}

func TestDecodeBody(t *testing.T) {
	type input struct {
		Command     string   `cty:"command"`
		Interpreter string   `cty:"interpreter"`
		Packages    []string `cty:"packages"`
	}

	model := loadManifest(t, `
action "demo" {
  lifecycle {
    on_run = "OnRunDemo"
  }
  input "command" {
    type = string
  }
  input "interpreter" {
    type    = string
    default = "sh"
  }
  input "packages" {
    type     = list(string)
    optional = true
  }
}
`)
	def := model.Actions["demo"]

	args := map[string]hcl.Expression{
		"command":  literalExpr(t, `"echo hi"`),
		"packages": literalExpr(t, `["mypy", "ruff"]`),
	}

	var in input
	err := NewConverter().DecodeBody(testCtx(), &in, args, def.Inputs, &hcl.EvalContext{})
	require.NoError(t, err)
	require.Equal(t, "echo hi", in.Command)
	require.Equal(t, "sh", in.Interpreter, "default must fill the omitted argument")
	require.Equal(t, []string{"mypy", "ruff"}, in.Packages)

	// Required argument missing.
	var empty input
	err = NewConverter().DecodeBody(testCtx(), &empty, nil, def.Inputs, &hcl.EvalContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), `required argument "command"`)

	// Undeclared argument.
	var extra input
	err = NewConverter().DecodeBody(testCtx(), &extra, map[string]hcl.Expression{
		"command": literalExpr(t, `"x"`),
		"bogus":   literalExpr(t, `"y"`),
	}, def.Inputs, &hcl.EvalContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown argument "bogus"`)
}

func TestToCtyValue(t *testing.T) {
	conv := NewConverter()

	val, err := conv.ToCtyValue(nil)
	require.NoError(t, err)
	require.Equal(t, cty.NilVal, val)

	passthrough := cty.StringVal("x")
	val, err = conv.ToCtyValue(passthrough)
	require.NoError(t, err)
	require.Equal(t, passthrough, val)

	val, err = conv.ToCtyValue("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", val.AsString())
}
