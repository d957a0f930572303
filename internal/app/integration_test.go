package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipewright/internal/registry"
	"github.com/vk/pipewright/internal/testutil"
)

func TestIntegration_SuccessfulPipeline(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {}
  }

  job "build" {
    step "hello" {
      run = "echo building"
    }
  }

  job "verify" {
    needs = ["build"]

    step "check" {
      run = "echo verifying"
    }
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, nil)

	require.NoError(t, result.Err)
	testutil.AssertJobConclusion(t, result, "ci", "build", "success")
	testutil.AssertJobConclusion(t, result, "ci", "verify", "success")
	assert.Contains(t, result.LogOutput, "🏁 Run finished.")
}

func TestIntegration_FailFastSkipsDependents(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {}
  }

  job "lint" {
    step "boom" {
      run = "exit 1"
    }
  }

  job "publish" {
    needs = ["lint"]

    step "push" {
      run = "echo should never run"
    }
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, nil)

	require.Error(t, result.Err)
	testutil.AssertJobConclusion(t, result, "ci", "lint", "failure")
	testutil.AssertJobConclusion(t, result, "ci", "publish", "skipped")
	testutil.AssertStepDidNotRun(t, result, "ci", "publish", "push")
}

func TestIntegration_ContinueOnError(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {}
  }

  job "lint" {
    step "flaky" {
      run               = "exit 7"
      continue_on_error = true
    }

    step "after" {
      run = "echo kept going"
    }
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, nil)

	require.NoError(t, result.Err)
	testutil.AssertJobConclusion(t, result, "ci", "lint", "success")
	testutil.AssertStepRan(t, result, "ci", "lint", "after")
}

func TestIntegration_StepOutcomeVisibleDownstream(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {}
  }

  job "lint" {
    step "flaky" {
      run               = "exit 7"
      continue_on_error = true
    }

    step "cleanup" {
      run = "echo cleaning"
      if  = steps.flaky.outcome == "failure"
    }

    step "celebrate" {
      run = "echo all green"
      if  = steps.flaky.outcome == "success"
    }
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, nil)

	require.NoError(t, result.Err)
	testutil.AssertStepRan(t, result, "ci", "lint", "cleanup")
	testutil.AssertStepDidNotRun(t, result, "ci", "lint", "celebrate")
}

func TestIntegration_SkippedJobUnlocksDependents(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {}
  }

  job "optional" {
    if = event.branch == "release"

    step "never" {
      run = "echo optional work"
    }
  }

  job "always" {
    needs = ["optional"]

    step "go" {
      run = "echo still runs"
    }
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, nil)

	require.NoError(t, result.Err)
	testutil.AssertJobConclusion(t, result, "ci", "optional", "skipped")
	testutil.AssertJobConclusion(t, result, "ci", "always", "success")
	testutil.AssertStepDidNotRun(t, result, "ci", "optional", "never")
}

func TestIntegration_BranchFilterExcludesEvent(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {
      branches = ["main"]
    }
  }

  job "lint" {
    step "x" {
      run = "echo hi"
    }
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, &testutil.HarnessOptions{
		Ref: "refs/heads/feature/thing",
	})

	require.NoError(t, result.Err)
	assert.Contains(t, result.LogOutput, "No workflows matched the event")
}

func TestIntegration_PathFilter(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {
      paths = ["**.py"]
    }
  }

  job "lint" {
    step "x" {
      run = "echo lint"
    }
  }
}
`,
	}

	t.Run("matching change set runs the workflow", func(t *testing.T) {
		result := testutil.RunIntegrationTest(t, files, &testutil.HarnessOptions{
			Changed: []string{"src/deep/module.py"},
		})
		require.NoError(t, result.Err)
		testutil.AssertJobConclusion(t, result, "ci", "lint", "success")
	})

	t.Run("unrelated change set does not", func(t *testing.T) {
		result := testutil.RunIntegrationTest(t, files, &testutil.HarnessOptions{
			Changed: []string{"README.md"},
		})
		require.NoError(t, result.Err)
		assert.Contains(t, result.LogOutput, "No workflows matched the event")
	})
}

func TestIntegration_YAMLWorkflow(t *testing.T) {
	files := map[string]string{
		"modules/shell/manifest.hcl": testutil.ShellManifest,
		"workflows/ci.yml": `
name: ci
on: push
jobs:
  lint:
    steps:
      - id: hello
        run: echo from yaml
`,
	}

	result := testutil.RunIntegrationTest(t, files, nil)

	require.NoError(t, result.Err)
	testutil.AssertJobConclusion(t, result, "ci", "lint", "success")
}

func TestIntegration_UsesActionStep(t *testing.T) {
	files := map[string]string{
		"modules/noop/manifest.hcl": testutil.NoOpManifest,
		"workflows/ci.hcl": `
workflow "ci" {
  on {
    push {}
  }

  job "lint" {
    step "nothing" {
      uses = "noop"
      with {}
    }
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files, &testutil.HarnessOptions{
		Modules: []registry.Module{&testutil.NoOpModule{}},
	})

	require.NoError(t, result.Err)
	testutil.AssertJobConclusion(t, result, "ci", "lint", "success")
}
