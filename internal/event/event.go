// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Event, the runtime description of what happened to
// the repository. Trigger evaluation compares an Event against a workflow's
// trigger block to decide whether the workflow runs at all.
package event

import (
	"fmt"
	"strings"
)

// Kind identifies the class of repository event.
type Kind string

const (
	// Push fires when commits land on a branch.
	Push Kind = "push"
	// PullRequest fires when a pull request is opened or updated.
	PullRequest Kind = "pull_request"
)

// Event describes a single repository event to evaluate workflows against.
type Event struct {
	// Kind is the event class, e.g. Push.
	Kind Kind
	// Ref is the full git ref, e.g. "refs/heads/main". May equal Branch
	// when the event was described with a bare branch name.
	Ref string
	// Branch is the short branch name the event concerns.
	Branch string
	// Files is the set of repository-relative paths changed by the event,
	// using forward slashes.
	Files []string
}

// ParseKind validates and converts a user-supplied event name.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Push:
		return Push, nil
	case PullRequest:
		return PullRequest, nil
	default:
		return "", fmt.Errorf("unknown event %q: must be %q or %q", s, Push, PullRequest)
	}
}

// New builds an Event from a kind, a ref (full or short), and changed paths.
func New(kind Kind, ref string, files []string) *Event {
	return &Event{
		Kind:   kind,
		Ref:    ref,
		Branch: ShortBranch(ref),
		Files:  files,
	}
}

// ShortBranch strips the refs/heads/ prefix from a git ref, if present.
func ShortBranch(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}
