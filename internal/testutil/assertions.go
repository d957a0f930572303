package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertJobConclusion checks the log output for a job's final conclusion. It
// keys off the summary line the app emits per job, which carries the node ID
// and the conclusion as attributes.
func AssertJobConclusion(t *testing.T, result *HarnessResult, workflow, job, conclusion string) {
	t.Helper()

	nodeID := fmt.Sprintf("job.%s.%s", workflow, job)
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if !strings.Contains(line, "Job finished.") || !strings.Contains(line, "job="+nodeID) {
			continue
		}
		require.Contains(t, line, "conclusion="+conclusion,
			"job '%s' concluded differently than expected", nodeID)
		return
	}
	require.Failf(t, "job conclusion not found",
		"no 'Job finished.' log line for job '%s'\nlogs:\n%s", nodeID, result.LogOutput)
}

// AssertStepRan checks that a step started executing, by its log line.
func AssertStepRan(t *testing.T, result *HarnessResult, workflow, job, stepID string) {
	t.Helper()
	requireLogLine(t, result, "Starting step", "job=job."+workflow+"."+job, "step="+stepID)
}

// AssertStepDidNotRun checks that a step never started executing.
func AssertStepDidNotRun(t *testing.T, result *HarnessResult, workflow, job, stepID string) {
	t.Helper()
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, "Starting step") &&
			strings.Contains(line, "job=job."+workflow+"."+job) &&
			strings.Contains(line, "step="+stepID) {
			require.Failf(t, "step ran unexpectedly",
				"step '%s' of job '%s.%s' started\nline: %s", stepID, workflow, job, line)
		}
	}
}

// requireLogLine asserts that one log line contains all the given fragments.
func requireLogLine(t *testing.T, result *HarnessResult, fragments ...string) {
	t.Helper()
	for _, line := range strings.Split(result.LogOutput, "\n") {
		matched := true
		for _, fragment := range fragments {
			if !strings.Contains(line, fragment) {
				matched = false
				break
			}
		}
		if matched {
			return
		}
	}
	require.Failf(t, "log line not found",
		"no log line containing all of %v\nlogs:\n%s", fragments, result.LogOutput)
}
