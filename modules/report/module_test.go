package report

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/registry"
	"gopkg.in/yaml.v3"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func testStepContext(t *testing.T) *registry.StepContext {
	t.Helper()
	ws := t.TempDir()
	return &registry.StepContext{
		RunID:     "run-1",
		Workflow:  "ci",
		Job:       "lint",
		StepID:    "summary",
		Workspace: ws,
		Workdir:   ws,
		Completed: []registry.StepRecord{
			{ID: "checkout", Outcome: "success"},
			{ID: "lint", Outcome: "failure", ExitCode: 1, Error: "exit 1"},
		},
	}
}

func TestOnRunReport_YAML(t *testing.T) {
	sc := testStepContext(t)

	val, err := OnRunReport(testCtx(), sc, &Input{Path: "out/report.yaml", Format: "yaml"})
	require.NoError(t, err)

	path := val.GetAttr("path").AsString()
	assert.Equal(t, filepath.Join(sc.Workspace, "out", "report.yaml"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got jobReport
	require.NoError(t, yaml.Unmarshal(raw, &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "failure", got.Steps[1].Outcome)
	assert.Equal(t, 1, got.Steps[1].ExitCode)
}

func TestOnRunReport_JSON(t *testing.T) {
	sc := testStepContext(t)

	val, err := OnRunReport(testCtx(), sc, &Input{Path: "report.json", Format: "json"})
	require.NoError(t, err)

	raw, err := os.ReadFile(val.GetAttr("path").AsString())
	require.NoError(t, err)

	var got jobReport
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "lint", got.Job)
}

func TestOnRunReport_UnknownFormat(t *testing.T) {
	sc := testStepContext(t)
	_, err := OnRunReport(testCtx(), sc, &Input{Path: "r.xml", Format: "xml"})
	assert.ErrorContains(t, err, "unknown report format")
}
