package event

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipewright/internal/config"
)

func pushTrigger(filter *config.EventFilter) *config.Trigger {
	return &config.Trigger{Push: filter}
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("push")
	require.NoError(t, err)
	require.Equal(t, Push, kind)

	kind, err = ParseKind(" Pull_Request ")
	require.NoError(t, err)
	require.Equal(t, PullRequest, kind)

	_, err = ParseKind("deployment")
	require.Error(t, err)
}

func TestMatches_EventKind(t *testing.T) {
	trigger := pushTrigger(&config.EventFilter{})

	require.True(t, Matches(trigger, New(Push, "main", nil)))
	require.False(t, Matches(trigger, New(PullRequest, "main", nil)),
		"a push-only trigger must not react to pull requests")
	require.False(t, Matches(nil, New(Push, "main", nil)))
}

func TestMatches_BranchFilters(t *testing.T) {
	trigger := pushTrigger(&config.EventFilter{Branches: []string{"**"}})

	require.True(t, Matches(trigger, New(Push, "main", nil)))
	require.True(t, Matches(trigger, New(Push, "feature/login/v2", nil)),
		"'**' must match branch names containing slashes")

	ignore := pushTrigger(&config.EventFilter{
		Branches:       []string{"**"},
		BranchesIgnore: []string{"wip/**"},
	})
	require.True(t, Matches(ignore, New(Push, "main", nil)))
	require.False(t, Matches(ignore, New(Push, "wip/scratch", nil)),
		"ignore patterns veto the allow list")
}

func TestMatches_PathFilters(t *testing.T) {
	trigger := pushTrigger(&config.EventFilter{
		Branches: []string{"**"},
		Paths:    []string{"**.py"},
	})

	require.True(t, Matches(trigger, New(Push, "main", []string{"src/app.py"})))
	require.True(t, Matches(trigger, New(Push, "main", []string{"README.md", "setup.py"})),
		"one matching path among many is enough")
	require.False(t, Matches(trigger, New(Push, "main", []string{"README.md"})))
	require.False(t, Matches(trigger, New(Push, "main", nil)),
		"an event with no changed files only matches workflows without path filters")
}

func TestMatches_NoPathFilter(t *testing.T) {
	trigger := pushTrigger(&config.EventFilter{})
	require.True(t, Matches(trigger, New(Push, "main", nil)))
	require.True(t, Matches(trigger, New(Push, "main", []string{"anything.txt"})))
}

func TestMatches_PathsIgnore(t *testing.T) {
	trigger := pushTrigger(&config.EventFilter{
		Paths:       []string{"**.py"},
		PathsIgnore: []string{"tests/**"},
	})
	require.True(t, Matches(trigger, New(Push, "main", []string{"src/app.py"})))
	require.False(t, Matches(trigger, New(Push, "main", []string{"tests/test_app.py"})))
}

func TestShortBranch(t *testing.T) {
	require.Equal(t, "main", ShortBranch("refs/heads/main"))
	require.Equal(t, "feature/x", ShortBranch("refs/heads/feature/x"))
	require.Equal(t, "main", ShortBranch("main"))
}
