package identity

import (
	"regexp"
	"strings"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,16}$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// NormalizeUsername performs case-insensitive canonicalization.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidUsername reports whether s is an acceptable username:
// letters, digits, underscore or dash, 3 to 16 characters.
func ValidUsername(s string) bool {
	return usernameRe.MatchString(strings.TrimSpace(s))
}

// ValidEmail performs a syntactic email check (max 254 chars, no "..").
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 254 {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	return emailRe.MatchString(s)
}
