package app

import (
	"errors"

	"github.com/vk/pipewright/internal/event"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// WorkflowPath points at a workflow file or a directory of them.
	WorkflowPath string
	// ModulesPath points at the directory of action manifests.
	ModulesPath string
	// Source is the repository the run concerns: the checkout origin, the
	// git fallback for event synthesis, and the watch target.
	Source string

	// Event description. Ref and ChangedPaths override git detection when
	// provided; ChangedExplicit distinguishes an empty change set from an
	// absent flag.
	EventName       string
	Ref             string
	ChangedPaths    []string
	ChangedExplicit bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	Watch          bool
	KeepWorkspaces bool
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.Source == "" {
		cfg.Source = "."
	}
	if cfg.EventName == "" {
		cfg.EventName = "push"
	}
	if _, err := event.ParseKind(cfg.EventName); err != nil {
		return nil, err
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 4
	}
	return &cfg, nil
}
