package shell

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func testStepContext(t *testing.T, out io.Writer) *registry.StepContext {
	t.Helper()
	return &registry.StepContext{
		RunID:     "test-run",
		Workflow:  "wf",
		Job:       "job",
		StepID:    "step",
		Workspace: t.TempDir(),
		Workdir:   t.TempDir(),
		Env:       map[string]string{"PATH": "/usr/bin:/bin"},
		Stdout:    out,
		Stderr:    out,
	}
}

func TestOnRunShell_Success(t *testing.T) {
	var out bytes.Buffer
	sc := testStepContext(t, &out)

	val, err := OnRunShell(testCtx(), sc, &Input{Command: "echo hello"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "hello")
	exitCode, _ := val.GetAttr("exit_code").AsBigFloat().Int64()
	assert.Equal(t, int64(0), exitCode)
}

func TestOnRunShell_NonzeroExit(t *testing.T) {
	var out bytes.Buffer
	sc := testStepContext(t, &out)

	_, err := OnRunShell(testCtx(), sc, &Input{Command: "exit 3"})

	require.Error(t, err)
	exitErr, ok := err.(*registry.ExitCodeError)
	require.True(t, ok)
	assert.Equal(t, 3, exitErr.Code)
}

func TestOnRunShell_EnvAndWorkdir(t *testing.T) {
	var out bytes.Buffer
	sc := testStepContext(t, &out)
	sc.Env["GREETING"] = "hi there"

	val, err := OnRunShell(testCtx(), sc, &Input{Command: `echo "$GREETING" && pwd`})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "hi there")
	assert.Contains(t, out.String(), sc.Workdir)
	assert.Equal(t, cty.Object(map[string]cty.Type{"exit_code": cty.Number}), val.Type())
}
