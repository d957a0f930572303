package event

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vk/pipewright/internal/ctxlog"
)

// FromGit synthesizes a push event from the state of a local git worktree:
// the current branch, plus every path that differs from HEAD (staged,
// unstaged, and untracked).
func FromGit(ctx context.Context, dir string) (*Event, error) {
	logger := ctxlog.FromContext(ctx)

	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to determine current branch: %w", err)
	}

	changed, err := gitOutput(ctx, dir, "diff", "--name-only", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}
	untracked, err := gitOutput(ctx, dir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("failed to list untracked files: %w", err)
	}

	files := splitLines(changed)
	files = append(files, splitLines(untracked)...)

	logger.Debug("Synthesized event from git worktree.", "branch", branch, "changed_files", len(files))
	return New(Push, branch, files), nil
}

// gitOutput runs a git subcommand in dir and returns its trimmed stdout.
func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
