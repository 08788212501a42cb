package parser

import "idsync.io/idsync/internal/domain"

// InvalidEmail records an email that failed the format check and the row it
// came from.
type InvalidEmail struct {
	Email string
	Row   int
}

// ValidationResult is the outcome of parsing users from CSV, with counts
// and warnings for operator feedback.
type ValidationResult struct {
	Users         []domain.User
	TotalCount    int
	ActiveCount   int
	InactiveCount int

	// DuplicateEmails maps each duplicated email (lowercased) to the row
	// numbers where it was seen.
	DuplicateEmails map[string][]int

	InvalidEmails      []InvalidEmail
	UsersWithoutGroups int
	UsersWithoutNames  int

	// UniqueGroups is the set of group identifiers seen across all users.
	UniqueGroups map[string]struct{}
}

// HasWarnings reports whether any validation warnings were found.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.DuplicateEmails) > 0 ||
		len(r.InvalidEmails) > 0 ||
		r.UsersWithoutGroups > 0 ||
		r.UsersWithoutNames > 0
}
