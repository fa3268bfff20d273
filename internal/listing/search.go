// Package listing implements the list-view helpers shared by every entity: free-text
// search, page windows, selection checks and numeric range validation.
package listing

import (
	"regexp"
	"strings"
)

var (
	termRe  = regexp.MustCompile(`"([^"]+)"|(\S+)`)
	spaceRe = regexp.MustCompile(`\s{2,}`)
)

// Terms splits a query into double-quoted phrases and bare words. Runs of
// whitespace inside phrases collapse to one space.
func Terms(query string) []string {
	var terms []string
	for _, m := range termRe.FindAllStringSubmatch(query, -1) {
		t := m[1]
		if t == "" {
			t = m[2]
		}
		terms = append(terms, spaceRe.ReplaceAllString(strings.TrimSpace(t), " "))
	}
	return terms
}

// Match reports whether every term occurs, case-insensitively, in at least one field.
func Match(terms []string, fields ...string) bool {
	for _, term := range terms {
		term = strings.ToLower(term)
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Filter keeps the items whose searchable fields match query, preserving order.
// A blank query keeps everything.
func Filter[T any](items []T, query string, fields func(T) []string) []T {
	terms := Terms(query)
	if len(terms) == 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Match(terms, fields(it)...) {
			out = append(out, it)
		}
	}
	return out
}
