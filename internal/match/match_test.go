package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlob(t *testing.T) {
	cases := []struct {
		pattern string
		subject string
		want    bool
	}{
		// Literals.
		{"main", "main", true},
		{"main", "maintenance", false},
		{"", "", true},
		{"", "x", false},

		// Single star stops at separators.
		{"*", "main", true},
		{"*", "feature/login", false},
		{"feature/*", "feature/login", true},
		{"feature/*", "feature/login/v2", false},
		{"*.py", "setup.py", true},
		{"*.py", "pkg/setup.py", false},

		// Double star crosses separators.
		{"**", "main", true},
		{"**", "feature/login/v2", true},
		{"**", "", true},
		{"**.py", "setup.py", true},
		{"**.py", "src/pkg/module.py", true},
		{"**.py", "src/pkg/module.go", false},
		{"src/**", "src/a/b/c.py", true},
		{"src/**/test_*.py", "src/pkg/test_utils.py", true},
		{"src/**/test_*.py", "src/test_utils.py", true},

		// Question mark.
		{"v?", "v1", true},
		{"v?", "v10", false},
		{"a?c", "a/c", false},

		// Mixed.
		{"release-*", "release-2024", true},
		{"release-*", "release/2024", false},
		{"releases/**", "releases/v1/rc2", true},
	}
	for _, tc := range cases {
		got := Glob(tc.pattern, tc.subject)
		require.Equalf(t, tc.want, got, "Glob(%q, %q)", tc.pattern, tc.subject)
	}
}

func TestFilter(t *testing.T) {
	t.Run("empty filter matches everything", func(t *testing.T) {
		f := Filter{}
		require.True(t, f.Matches("anything/at/all"))
		require.True(t, f.Empty())
	})

	t.Run("allow list restricts", func(t *testing.T) {
		f := Filter{Allow: []string{"main", "release-*"}}
		require.True(t, f.Matches("main"))
		require.True(t, f.Matches("release-1"))
		require.False(t, f.Matches("develop"))
	})

	t.Run("ignore list vetoes after allow list", func(t *testing.T) {
		f := Filter{Allow: []string{"**"}, Ignore: []string{"docs/**"}}
		require.True(t, f.Matches("src/main.py"))
		require.False(t, f.Matches("docs/index.md"))
	})

	t.Run("ignore list alone", func(t *testing.T) {
		f := Filter{Ignore: []string{"vendor/**"}}
		require.True(t, f.Matches("src/main.py"))
		require.False(t, f.Matches("vendor/lib/a.py"))
	})
}
