// Package testutil provides the shared harness for integration tests that
// exercise the whole engine: configuration loading, trigger evaluation, and
// job execution against a synthetic event.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipewright/internal/app"
	"github.com/vk/pipewright/internal/loader"
	"github.com/vk/pipewright/internal/registry"
	"github.com/vk/pipewright/modules/shell"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessOptions tunes the synthetic event and module set of a test run.
type HarnessOptions struct {
	// Event defaults to "push".
	Event string
	// Ref defaults to "refs/heads/main".
	Ref string
	// Changed is the explicit change set of the event. It is always passed
	// explicitly so tests never touch git.
	Changed []string
	// Modules defaults to the shell module only.
	Modules []registry.Module
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// RunIntegrationTest writes the given configuration files into a temporary
// tree, builds an App around them, and runs it once against the synthetic
// event described by opts. Keys of files are relative paths; anything under
// "workflows/" is loaded as workflow config and anything under "modules/" as
// action manifests.
func RunIntegrationTest(t *testing.T, files map[string]string, opts *HarnessOptions) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, opts)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided
// context, for tests that need cancellation.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, opts *HarnessOptions) *HarnessResult {
	t.Helper()

	if opts == nil {
		opts = &HarnessOptions{}
	}
	if opts.Event == "" {
		opts.Event = "push"
	}
	if opts.Ref == "" {
		opts.Ref = "refs/heads/main"
	}
	if len(opts.Modules) == 0 {
		opts.Modules = []registry.Module{&shell.Module{}}
	}

	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")
	modulesDir := filepath.Join(tmpDir, "modules")
	require.NoError(t, os.Mkdir(workflowsDir, 0o755))
	require.NoError(t, os.Mkdir(modulesDir, 0o755))

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	appConfig, err := app.NewConfig(app.Config{
		WorkflowPath:    workflowsDir,
		ModulesPath:     modulesDir,
		Source:          tmpDir,
		EventName:       opts.Event,
		Ref:             opts.Ref,
		ChangedPaths:    opts.Changed,
		ChangedExplicit: true,
		LogFormat:       "text",
		LogLevel:        "debug",
		WorkerCount:     4,
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, loader.New(), opts.Modules...)
	}()
	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx, appConfig)

	if os.Getenv("PIPEWRIGHT_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
