// Package workspace manages the per-job working directories of a run.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager allocates isolated job directories under a run-scoped root.
type Manager struct {
	root string
	keep bool
}

// NewManager creates the run root directory. When keep is true, Cleanup
// leaves everything on disk for inspection.
func NewManager(runID string, keep bool) (*Manager, error) {
	root, err := os.MkdirTemp("", "pipewright-"+sanitize(runID)+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create run workspace root: %w", err)
	}
	return &Manager{root: root, keep: keep}, nil
}

// Root returns the run's workspace root directory.
func (m *Manager) Root() string {
	return m.root
}

// JobDir creates and returns the workspace directory for one job.
func (m *Manager) JobDir(workflow, job string) (string, error) {
	dir := filepath.Join(m.root, sanitize(workflow), sanitize(job))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job workspace: %w", err)
	}
	return dir, nil
}

// Cleanup removes the run root unless the manager was created with keep.
func (m *Manager) Cleanup() error {
	if m.keep {
		return nil
	}
	return os.RemoveAll(m.root)
}

// sanitize maps a name onto a safe directory component.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
