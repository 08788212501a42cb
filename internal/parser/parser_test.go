package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "idsync.io/idsync/internal/pkg/errors"
	"idsync.io/idsync/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGroups(t *testing.T) {
	path := writeCSV(t, `Email,User Display Name,Employee Status,Entitlement Display Name
alice@example.com,Alice Anderson,A,"CN=admins,OU=Groups,DC=example,DC=com"
bob@example.com,Bob Brown,A,"CN=admins,OU=Groups,DC=example,DC=com"
carol@example.com,Carol Clark,I,"CN=viewers,OU=Groups,DC=example,DC=com"
alice@example.com,Alice Anderson,A,"CN=viewers,OU=Groups,DC=example,DC=com"
`)

	groups, err := Groups(path, Options{})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	require.Equal(t, "admins", groups[0].Name)
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, groups[0].Users)

	require.Equal(t, "viewers", groups[1].Name)
	require.Equal(t, []string{"alice@example.com", "carol@example.com"}, groups[1].Users)
}

func TestGroups_DeduplicatesMembers(t *testing.T) {
	path := writeCSV(t, `Email,Entitlement Display Name
alice@example.com,"CN=admins,DC=example,DC=com"
alice@example.com,"CN=admins,DC=example,DC=com"
`)

	groups, err := Groups(path, Options{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, []string{"alice@example.com"}, groups[0].Users)
}

func TestGroups_SkipsMalformedDN(t *testing.T) {
	path := writeCSV(t, `Email,Entitlement Display Name
alice@example.com,"CN=admins,DC=example,DC=com"
bob@example.com,not-a-dn-at-all=
carol@example.com,"OU=Groups,DC=example,DC=com"
`)

	groups, err := Groups(path, Options{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "admins", groups[0].Name)
	require.Equal(t, []string{"alice@example.com"}, groups[0].Users)
}

func TestGroups_SkipsBlankFields(t *testing.T) {
	path := writeCSV(t, `Email,Entitlement Display Name
,"CN=admins,DC=example,DC=com"
alice@example.com,
bob@example.com,"CN=admins,DC=example,DC=com"
`)

	groups, err := Groups(path, Options{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, []string{"bob@example.com"}, groups[0].Users)
}

func TestGroups_DNSLabels(t *testing.T) {
	path := writeCSV(t, `Email,Entitlement Display Name
alice@example.com,"CN=Dev_Team,OU=Groups,DC=example,DC=com"
`)

	groups, err := Groups(path, Options{DNSLabels: true})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "dev-team", groups[0].Name)
	require.Equal(t, "Dev_Team", groups[0].OriginalName)
}

func TestGroups_FallbackHeaderSpelling(t *testing.T) {
	path := writeCSV(t, `email,entitlement_display_name
alice@example.com,"CN=admins,DC=example,DC=com"
`)

	groups, err := Groups(path, Options{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "admins", groups[0].Name)
}

func TestGroups_MissingColumns(t *testing.T) {
	path := writeCSV(t, `User Display Name,Employee Status
Alice Anderson,A
`)

	_, err := Groups(path, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "CSV missing required columns: Email, Entitlement Display Name")

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeCSVMissingColumns, appErr.Code)
	require.True(t, apperrors.IsUsage(err))
}

func TestGroups_EmptyFile(t *testing.T) {
	path := writeCSV(t, "")

	_, err := Groups(path, Options{})
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeCSVEmpty, appErr.Code)
}

func TestGroups_FileNotFound(t *testing.T) {
	_, err := Groups(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeCSVNotFound, appErr.Code)
}

func TestUsers(t *testing.T) {
	path := writeCSV(t, `Email,User Display Name,Employee Status,Entitlement Display Name
alice@example.com,Alice Anderson,A,"CN=admins,DC=example,DC=com|CN=viewers,DC=example,DC=com"
bob@example.com,Bob Brown,I,"CN=viewers,DC=example,DC=com"
`)

	result, err := Users(path)
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalCount)
	require.Equal(t, 1, result.ActiveCount)
	require.Equal(t, 1, result.InactiveCount)
	require.False(t, result.HasWarnings())

	alice := result.Users[0]
	require.Equal(t, "alice@example.com", alice.Email)
	require.Equal(t, "alice@example.com", alice.Username)
	require.Equal(t, "Alice Anderson", alice.DisplayName)
	require.Equal(t, "Alice", alice.FirstName)
	require.Equal(t, "Anderson", alice.LastName)
	require.True(t, alice.Active)
	require.Equal(t, []string{"admins", "viewers"}, alice.Groups)

	bob := result.Users[1]
	require.False(t, bob.Active)
	require.Equal(t, []string{"viewers"}, bob.Groups)

	require.Len(t, result.UniqueGroups, 2)
	require.Contains(t, result.UniqueGroups, "admins")
	require.Contains(t, result.UniqueGroups, "viewers")
}

func TestUsers_DuplicateEmails(t *testing.T) {
	path := writeCSV(t, `Email,User Display Name,Employee Status,Entitlement Display Name
alice@example.com,Alice Anderson,A,"CN=admins,DC=example,DC=com"
bob@example.com,Bob Brown,A,"CN=admins,DC=example,DC=com"
ALICE@example.com,Alice Anderson,A,"CN=viewers,DC=example,DC=com"
`)

	result, err := Users(path)
	require.NoError(t, err)
	require.Equal(t, 3, result.TotalCount)
	require.True(t, result.HasWarnings())
	require.Equal(t, map[string][]int{"alice@example.com": {2, 4}}, result.DuplicateEmails)
}

func TestUsers_InvalidEmailReported(t *testing.T) {
	path := writeCSV(t, `Email,User Display Name,Employee Status,Entitlement Display Name
not-an-email,Alice Anderson,A,"CN=admins,DC=example,DC=com"
`)

	result, err := Users(path)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalCount)
	require.Equal(t, []InvalidEmail{{Email: "not-an-email", Row: 2}}, result.InvalidEmails)
}

func TestUsers_BlankEmailSkipped(t *testing.T) {
	path := writeCSV(t, `Email,User Display Name,Employee Status,Entitlement Display Name
,Alice Anderson,A,"CN=admins,DC=example,DC=com"
bob@example.com,Bob Brown,A,"CN=admins,DC=example,DC=com"
`)

	result, err := Users(path)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalCount)
	require.Equal(t, "bob@example.com", result.Users[0].Email)
}

func TestUsers_MalformedEntitlementIsFatal(t *testing.T) {
	path := writeCSV(t, `Email,User Display Name,Employee Status,Entitlement Display Name
alice@example.com,Alice Anderson,A,"CN=admins,DC=example,DC=com"
bob@example.com,Bob Brown,A,"OU=Groups,DC=example,DC=com"
`)

	_, err := Users(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "row 3: failed to parse user")

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeCSVRowInvalid, appErr.Code)
}

func TestUsers_WarningCounters(t *testing.T) {
	path := writeCSV(t, `Email,User Display Name,Employee Status,Entitlement Display Name
alice@example.com,,A,
bob@example.com,Bob Brown,A,"CN=admins,DC=example,DC=com"
`)

	result, err := Users(path)
	require.NoError(t, err)
	require.Equal(t, 1, result.UsersWithoutGroups)
	require.Equal(t, 1, result.UsersWithoutNames)
	require.True(t, result.HasWarnings())
}

func TestUsers_MissingColumns(t *testing.T) {
	path := writeCSV(t, `Email,Entitlement Display Name
alice@example.com,"CN=admins,DC=example,DC=com"
`)

	_, err := Users(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "CSV missing required columns: Employee Status, User Display Name")
}
