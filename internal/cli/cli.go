// Package cli parses command-line arguments into an application configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/pipewright/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pipewright", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pipewright - a local CI workflow engine.

Evaluates workflow trigger conditions against a repository event and runs
the matched jobs.

Usage:
  pipewright [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a workflow file (.hcl, .yml, .yaml) or a directory of them.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workflow file or directory (shorthand).")
	modulesPathFlag := flagSet.String("modules-path", "modules", "Path to the directory containing action manifests.")
	sourceFlag := flagSet.String("source", ".", "Path to the repository the event concerns.")
	eventFlag := flagSet.String("event", "push", "Event to evaluate: 'push' or 'pull_request'.")
	refFlag := flagSet.String("ref", "", "Branch or ref of the event. Defaults to the current git branch.")
	changedFlag := flagSet.String("changed", "", "Comma-separated list of changed paths. Defaults to git detection.")
	changedFileFlag := flagSet.String("changed-file", "", "File listing changed paths, one per line.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")
	watchFlag := flagSet.Bool("watch", false, "Watch the source tree and re-run on changes.")
	keepFlag := flagSet.Bool("keep-workspaces", false, "Leave job workspaces on disk after the run.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	changed, changedExplicit, err := parseChangedPaths(*changedFlag, *changedFileFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	config, err := app.NewConfig(app.Config{
		WorkflowPath:    path,
		ModulesPath:     *modulesPathFlag,
		Source:          *sourceFlag,
		EventName:       *eventFlag,
		Ref:             *refFlag,
		ChangedPaths:    changed,
		ChangedExplicit: changedExplicit,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
		Watch:           *watchFlag,
		KeepWorkspaces:  *keepFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}

// parseChangedPaths merges the --changed list and --changed-file contents.
// Passing either flag, even with no usable entries, makes the change set
// explicit: "nothing changed" is a meaningful statement.
func parseChangedPaths(changed, changedFile string) ([]string, bool, error) {
	explicit := false
	var out []string

	if changed != "" {
		explicit = true
		for _, p := range strings.Split(changed, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	if changedFile != "" {
		explicit = true
		raw, err := os.ReadFile(changedFile)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read changed-file: %v", err)
		}
		for _, line := range strings.Split(string(raw), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out, explicit, nil
}
