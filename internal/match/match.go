// Package match implements the glob pattern dialect used by trigger filters.
//
// The dialect follows the conventions common to CI path and branch filters:
//
//   - `*` matches any run of characters except `/`.
//   - `**` matches any run of characters, including `/`. A `**/` prefix
//     additionally matches zero path segments.
//   - `?` matches exactly one character except `/`.
//   - Everything else matches literally.
//
// Patterns are matched against the whole string, not a prefix. There is no
// escaping; branch names and repository paths containing literal `*` or `?`
// are not supported as match targets.
package match

// Glob reports whether s matches the given pattern.
func Glob(pattern, s string) bool {
	return matchHere(pattern, s)
}

// matchHere is a classic backtracking matcher. The pattern and subject are
// consumed byte-wise; multi-byte runes only ever appear as literals, where
// byte-wise comparison is equivalent.
func matchHere(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			stars := 1
			for stars < len(p) && p[stars] == '*' {
				stars++
			}
			// Two or more consecutive stars cross path separators.
			crossSlash := stars > 1
			rest := p[stars:]
			// A `**/` segment also matches zero segments, so that
			// `src/**/x` covers `src/x`.
			if crossSlash && len(rest) > 0 && rest[0] == '/' && matchHere(rest[1:], s) {
				return true
			}
			for i := 0; ; i++ {
				if matchHere(rest, s[i:]) {
					return true
				}
				if i == len(s) {
					return false
				}
				if !crossSlash && s[i] == '/' {
					return false
				}
			}
		case '?':
			if len(s) == 0 || s[0] == '/' {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

// Any reports whether s matches at least one of the given patterns.
func Any(patterns []string, s string) bool {
	for _, p := range patterns {
		if Glob(p, s) {
			return true
		}
	}
	return false
}

// Filter combines an allow-list and an ignore-list of glob patterns.
// The ignore-list vetoes after the allow-list: a subject passes when it
// matches the allow-list (or the allow-list is empty) and does not match
// the ignore-list.
type Filter struct {
	Allow  []string
	Ignore []string
}

// Matches applies the filter to a single subject string.
func (f Filter) Matches(s string) bool {
	if len(f.Allow) > 0 && !Any(f.Allow, s) {
		return false
	}
	return !Any(f.Ignore, s)
}

// Empty reports whether the filter has no patterns at all.
func (f Filter) Empty() bool {
	return len(f.Allow) == 0 && len(f.Ignore) == 0
}
