package registry

import (
	"fmt"
	"io"
	"time"
)

// StepContext is the runtime environment handed to an action handler. It is
// scoped to a single step invocation within a job.
type StepContext struct {
	// RunID identifies the whole engine run.
	RunID string
	// Workflow and Job name the enclosing units.
	Workflow string
	Job      string
	// StepID is the step's identifier within the job.
	StepID string

	// Workspace is the job's working directory. `workdir` attributes are
	// resolved relative to it before the handler is invoked.
	Workspace string
	// Workdir is the effective directory for commands spawned by the step.
	Workdir string

	// Env is the merged environment for the step (process env, workflow
	// env, job env, step env; later layers win).
	Env map[string]string

	// Stdout and Stderr receive the raw output of spawned tools.
	Stdout io.Writer
	Stderr io.Writer

	// Completed holds the records of every step finished so far in this
	// job, in execution order.
	Completed []StepRecord

	// exported collects environment mutations that outlive the step.
	exported map[string]string
}

// StepRecord is the immutable outcome of a completed step.
type StepRecord struct {
	ID       string        `json:"id" yaml:"id"`
	Outcome  string        `json:"outcome" yaml:"outcome"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// EnvList renders the merged environment as KEY=VALUE pairs for os/exec.
func (sc *StepContext) EnvList() []string {
	out := make([]string, 0, len(sc.Env))
	for k, v := range sc.Env {
		out = append(out, k+"="+v)
	}
	return out
}

// ExportEnv records an environment variable that must remain visible to all
// subsequent steps of the job (e.g. a resolved interpreter path).
func (sc *StepContext) ExportEnv(key, value string) {
	if sc.exported == nil {
		sc.exported = make(map[string]string)
	}
	sc.exported[key] = value
	sc.Env[key] = value
}

// Exported returns the environment mutations recorded by the handler.
func (sc *StepContext) Exported() map[string]string {
	return sc.exported
}

// ExitCodeError reports that a spawned tool terminated with a nonzero exit
// code. The engine treats it like any other step failure but additionally
// records the code on the step's outcome.
type ExitCodeError struct {
	Command string
	Code    int
}

// Error implements the error interface.
func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Code)
}
