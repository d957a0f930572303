package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/dag"
	"github.com/vk/pipewright/internal/event"
	"github.com/vk/pipewright/internal/executor"
	"github.com/vk/pipewright/internal/workspace"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(appConfig.HealthcheckPort)
	}

	ev, err := a.resolveEvent(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to resolve event: %w", err)
	}
	a.logger.Info("Event resolved.", "event", ev.Kind, "branch", ev.Branch, "changed_files", len(ev.Files))

	if appConfig.Watch {
		return a.watchLoop(ctx, appConfig, ev)
	}
	return a.runOnce(ctx, appConfig, ev)
}

// runOnce evaluates triggers against one event and executes the matched jobs.
func (a *App) runOnce(ctx context.Context, appConfig *Config, ev *event.Event) error {
	matched := event.Select(ctx, a.config.Workflows, ev)
	if len(matched) == 0 {
		a.logger.Info("No workflows matched the event, nothing to run.", "event", ev.Kind, "branch", ev.Branch)
		return nil
	}
	a.logger.Info("Workflows matched.", "count", len(matched))

	graph, err := dag.Build(ctx, matched)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	runID := uuid.NewString()
	workspaces, err := workspace.NewManager(runID, appConfig.KeepWorkspaces)
	if err != nil {
		return err
	}
	defer func() {
		if err := workspaces.Cleanup(); err != nil {
			a.logger.Warn("Failed to clean up run workspaces.", "error", err)
		}
	}()

	a.logger.Info("🚀 Starting run.", "run_id", runID, "jobs", len(graph.Nodes), "workers", appConfig.WorkerCount)
	exec := executor.New(graph, appConfig.WorkerCount, a.registry, a.converter, ev, workspaces, runID, a.outW)
	runErr := exec.Run(ctx)

	for _, result := range exec.Results() {
		a.logger.Info("Job finished.", "job", result.NodeID, "conclusion", result.Conclusion, "steps", len(result.Steps))
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("🏁 Run finished.", "run_id", runID)
	return nil
}

// resolveEvent assembles the event from CLI-provided fields, falling back to
// the git worktree for anything not specified.
func (a *App) resolveEvent(ctx context.Context, appConfig *Config) (*event.Event, error) {
	kind, err := event.ParseKind(appConfig.EventName)
	if err != nil {
		return nil, err
	}

	needGit := appConfig.Ref == "" || !appConfig.ChangedExplicit
	var fromGit *event.Event
	if needGit {
		fromGit, err = event.FromGit(ctx, appConfig.Source)
		if err != nil {
			if appConfig.Ref == "" {
				return nil, fmt.Errorf("no --ref given and git detection failed: %w", err)
			}
			// Ref is known; an undetectable change set just means none.
			a.logger.Warn("Git change detection failed, assuming no changed files.", "error", err)
			fromGit = event.New(kind, appConfig.Ref, nil)
		}
	}

	ref := appConfig.Ref
	if ref == "" {
		ref = fromGit.Ref
	}
	files := appConfig.ChangedPaths
	if !appConfig.ChangedExplicit {
		files = fromGit.Files
	}
	return event.New(kind, ref, files), nil
}
