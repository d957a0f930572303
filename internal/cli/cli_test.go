package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_WorkflowFlag(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"--workflow", "ci.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "ci.hcl", cfg.WorkflowPath)
	assert.Equal(t, "push", cfg.EventName)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestParse_PositionalArgument(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"ci.yml"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "ci.yml", cfg.WorkflowPath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_EventAndChanged(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{
		"--event", "pull_request",
		"--ref", "feature/lint",
		"--changed", "a.py, b.py,",
		"ci.hcl",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "pull_request", cfg.EventName)
	assert.Equal(t, "feature/lint", cfg.Ref)
	assert.Equal(t, []string{"a.py", "b.py"}, cfg.ChangedPaths)
	assert.True(t, cfg.ChangedExplicit)
}

func TestParse_ChangedFile(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "changed.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("src/main.py\n\nsrc/util.py\n"), 0o644))

	var out bytes.Buffer
	cfg, _, err := Parse([]string{"--changed-file", listPath, "ci.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.py", "src/util.py"}, cfg.ChangedPaths)
	assert.True(t, cfg.ChangedExplicit)
}

func TestParse_InvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-level", "loud", "ci.hcl"}, &out)
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParse_InvalidLogFormat(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-format", "xml", "ci.hcl"}, &out)
	require.Error(t, err)
}

func TestParse_InvalidEvent(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--event", "deployment", "ci.hcl"}, &out)
	require.Error(t, err)
}
