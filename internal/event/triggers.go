package event

import (
	"context"

	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/match"
)

// Matches reports whether the given trigger block reacts to the event.
//
// A workflow matches when the event kind has a corresponding filter block,
// the branch passes the branch filter, and, if any path patterns are
// declared, at least one changed file passes the path filter. An event
// carrying no changed files therefore only matches workflows without path
// patterns.
func Matches(trigger *config.Trigger, ev *Event) bool {
	if trigger == nil {
		return false
	}

	var filter *config.EventFilter
	switch ev.Kind {
	case Push:
		filter = trigger.Push
	case PullRequest:
		filter = trigger.PullRequest
	}
	if filter == nil {
		return false
	}

	branches := match.Filter{Allow: filter.Branches, Ignore: filter.BranchesIgnore}
	if !branches.Matches(ev.Branch) {
		return false
	}

	paths := match.Filter{Allow: filter.Paths, Ignore: filter.PathsIgnore}
	if paths.Empty() {
		return true
	}
	for _, file := range ev.Files {
		if paths.Matches(file) {
			return true
		}
	}
	return false
}

// Select returns the subset of workflows whose triggers match the event.
func Select(ctx context.Context, workflows []*config.Workflow, ev *Event) []*config.Workflow {
	logger := ctxlog.FromContext(ctx)

	var matched []*config.Workflow
	for _, wf := range workflows {
		if Matches(wf.On, ev) {
			logger.Debug("Workflow matched event.", "workflow", wf.Name, "event", ev.Kind, "branch", ev.Branch)
			matched = append(matched, wf)
			continue
		}
		logger.Debug("Workflow did not match event.", "workflow", wf.Name, "event", ev.Kind, "branch", ev.Branch)
	}
	return matched
}
