package workspace

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManagerLifecycle(t *testing.T) {
	m, err := NewManager("run-1234", false)
	require.NoError(t, err)

	dir, err := m.JobDir("python lint", "lint")
	require.NoError(t, err)
	require.DirExists(t, dir)
	require.NotContains(t, dir, " ", "unsafe characters must be sanitized")

	require.NoError(t, m.Cleanup())
	_, err = os.Stat(m.Root())
	require.True(t, os.IsNotExist(err))
}

func TestManagerKeep(t *testing.T) {
	m, err := NewManager("run-keep", true)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(m.Root()) })

	_, err = m.JobDir("wf", "job")
	require.NoError(t, err)

	require.NoError(t, m.Cleanup())
	require.DirExists(t, m.Root(), "keep must leave the workspace on disk")
}
