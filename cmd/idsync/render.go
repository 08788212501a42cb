package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"idsync.io/idsync/internal/parser"
	"idsync.io/idsync/internal/service"
)

// sampleLimit caps how many entries of each warning class are printed.
const sampleLimit = 5

func banner(title string) {
	line := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n%s\n%s\n", line, title, line)
}

// renderValidation prints the CSV validation report for user sync.
func renderValidation(result *parser.ValidationResult, dryRun bool) {
	if dryRun {
		banner("DRY RUN MODE - No changes will be made to the remote service")
	}

	fmt.Printf("\nUsers planned from CSV: %d\n", result.TotalCount)
	fmt.Printf(" - Active: %d, Inactive: %d\n", result.ActiveCount, result.InactiveCount)

	if len(result.Users) > 0 {
		fmt.Println("\nSample of parsed users:")
		sample := result.Users
		if len(sample) > 3 {
			sample = sample[:3]
		}
		for _, user := range sample {
			status := "Inactive"
			if user.Active {
				status = "Active"
			}
			fmt.Printf("  %s (%s) - %s [%d groups]\n",
				user.Email, user.DisplayName, status, len(user.Groups))
		}
		if len(result.Users) > 3 {
			fmt.Printf("  ... and %d more users\n", len(result.Users)-3)
		}
	}

	if len(result.UniqueGroups) > 0 {
		fmt.Printf("\nGroups assigned: %d unique LDAP groups\n", len(result.UniqueGroups))
	}

	if !result.HasWarnings() {
		return
	}

	fmt.Println("\nValidation warnings:")

	if len(result.DuplicateEmails) > 0 {
		fmt.Printf("  - %d duplicate email(s) found:\n", len(result.DuplicateEmails))
		emails := make([]string, 0, len(result.DuplicateEmails))
		for email := range result.DuplicateEmails {
			emails = append(emails, email)
		}
		sort.Strings(emails)
		for i, email := range emails {
			if i == sampleLimit {
				fmt.Printf("    ... and %d more\n", len(emails)-sampleLimit)
				break
			}
			rows := result.DuplicateEmails[email]
			fmt.Printf("    * %s (rows: %s)\n", email, joinInts(rows))
		}
	}

	if len(result.InvalidEmails) > 0 {
		fmt.Printf("  - %d invalid email format(s):\n", len(result.InvalidEmails))
		for i, invalid := range result.InvalidEmails {
			if i == sampleLimit {
				fmt.Printf("    ... and %d more\n", len(result.InvalidEmails)-sampleLimit)
				break
			}
			fmt.Printf("    * %s (row %d)\n", invalid.Email, invalid.Row)
		}
	}

	if result.UsersWithoutGroups > 0 {
		fmt.Printf("  - %d user(s) have no group assignments\n", result.UsersWithoutGroups)
	}

	if result.UsersWithoutNames > 0 {
		fmt.Printf("  - %d user(s) missing display names\n", result.UsersWithoutNames)
	}
}

func renderFinalSummary(elapsed time.Duration, groupStats service.SyncStats, userStats service.UserSyncStats, prune bool) {
	banner("SYNCHRONIZATION COMPLETE")
	fmt.Printf("Execution time: %.2f seconds\n", elapsed.Seconds())

	fmt.Printf("Groups: %d created, %d updated\n", groupStats.Created, groupStats.Updated)
	if prune {
		fmt.Printf("Groups pruned: %d\n", groupStats.Deleted)
	}

	fmt.Printf("Users: %d created, %d updated\n", userStats.Created, userStats.Updated)
	if prune {
		fmt.Printf("Users pruned: %d\n", userStats.Deleted)
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
