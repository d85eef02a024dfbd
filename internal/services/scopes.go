package services

import "strings"

// NormalizeScopes collapses whitespace and drops duplicates while keeping
// first-seen order, so stored and compared scope strings are canonical.
func NormalizeScopes(scope string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range strings.Fields(scope) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

// ScopesWithin reports whether every scope in requested is present in granted.
// An empty requested set is trivially within any grant.
func ScopesWithin(requested, granted string) bool {
	allowed := make(map[string]struct{})
	for _, s := range strings.Fields(granted) {
		allowed[s] = struct{}{}
	}
	for _, s := range strings.Fields(requested) {
		if _, ok := allowed[s]; !ok {
			return false
		}
	}
	return true
}
