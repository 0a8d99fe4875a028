package identity

import "strings"

// NormalizeEmail trims surrounding whitespace.
// Emails are matched case-sensitively as stored, so no case folding happens here.
func NormalizeEmail(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeDisplayName trims surrounding whitespace.
func NormalizeDisplayName(s string) string {
	return strings.TrimSpace(s)
}
