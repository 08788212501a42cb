package parser

import (
	"regexp"
	"strings"
)

// emailRE is a simple local@domain.tld-shaped pattern. Reporting-only: an
// invalid email is flagged but the row still parses.
var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmailFormat reports whether email looks like a valid address.
func ValidEmailFormat(email string) bool {
	return emailRE.MatchString(email)
}

// SplitDisplayName splits a display name into (first, last): the last
// whitespace-separated token is the last name, everything before it the
// first name. Whitespace is normalized before splitting.
func SplitDisplayName(displayName string) (string, string) {
	parts := strings.Fields(displayName)

	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}

	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// ParseActiveStatus maps an employee status code to active. Only "A"
// (case-insensitive, trimmed) means active; every other value is inactive.
// Safe default: unknown codes are inactive.
func ParseActiveStatus(employeeStatus string) bool {
	return strings.EqualFold(strings.TrimSpace(employeeStatus), "A")
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
