// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// Distinct applies normalize to each value, drops empty results and
// duplicates, and preserves first-seen order. A nil input stays nil.
func Distinct(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// DedupeAndTrim trims whitespace, drops empties and duplicates. Case is preserved.
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "}) // ["foo", "bar"]
func DedupeAndTrim(values []string) []string {
	return Distinct(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with case folding. Domain names are
// compared this way before a batch cache lookup.
//
//	DedupeAndTrimLower([]string{"Gmail.com ", "gmail.COM", "yahoo.com"}) // ["gmail.com", "yahoo.com"]
func DedupeAndTrimLower(values []string) []string {
	return Distinct(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

// TrimLowerSet is DedupeAndTrimLower returned as a membership set.
func TrimLowerSet(values []string) map[string]struct{} {
	distinct := DedupeAndTrimLower(values)
	set := make(map[string]struct{}, len(distinct))
	for _, v := range distinct {
		set[v] = struct{}{}
	}
	return set
}
