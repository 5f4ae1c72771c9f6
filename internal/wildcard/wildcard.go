// Package wildcard implements the single-metacharacter pattern matching used
// by the filter engine: '*' matches zero or more characters, matching is
// anchored at both ends and case-sensitive.
package wildcard // import "github.com/tracescope/scopetrace/internal/wildcard"

// Match reports whether s matches pattern in full. pattern may contain any
// number of '*' wildcards, each matching zero or more characters greedily.
// Match("*", s) is always true.
func Match(pattern, s string) bool {
	var pi, si int
	var starIdx = -1
	var starMatch int

	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			starIdx = pi
			starMatch = si
			pi++
		case starIdx != -1:
			pi = starIdx + 1
			starMatch++
			si = starMatch
		default:
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}

	return pi == len(pattern)
}

// MatchAny reports whether s matches any pattern in patterns.
func MatchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		if Match(p, s) {
			return true
		}
	}
	return false
}
