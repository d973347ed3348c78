package common

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s for case-insensitive comparison.
// A Caser carries state, so each call gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr occurs in s ignoring case.
// An empty substr never matches.
func ContainsFold(s, substr string) bool {
	if strings.TrimSpace(substr) == "" {
		return false
	}
	return strings.Contains(Fold(s), Fold(substr))
}

// NormalizeName trims and case-folds a name and collapses internal whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(Fold(name)), " ")
}
