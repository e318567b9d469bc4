package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Returns nil on an empty or all whitespace string
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// CleanName collapses inner whitespace and normalises to NFC so that names
// typed on different keyboards compare equal.
func CleanName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// CleanPhone strips spaces, dashes, dots and parentheses, keeping a leading '+'.
func CleanPhone(s string) *string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return StringOrNil(b.String())
}
