package ldapdn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "idsync.io/idsync/internal/pkg/errors"
)

func TestExtractCN(t *testing.T) {
	cn, err := ExtractCN("CN=admins,OU=Groups,DC=example,DC=com")
	require.NoError(t, err)
	require.Equal(t, "admins", cn)
}

func TestExtractCN_CaseInsensitiveAttribute(t *testing.T) {
	cn, err := ExtractCN("cn=platform-ops,ou=Groups,dc=example,dc=com")
	require.NoError(t, err)
	require.Equal(t, "platform-ops", cn)
}

func TestExtractCN_FirstCNWins(t *testing.T) {
	cn, err := ExtractCN("CN=first,CN=second,DC=example,DC=com")
	require.NoError(t, err)
	require.Equal(t, "first", cn)
}

func TestExtractCN_NoCN(t *testing.T) {
	_, err := ExtractCN("OU=Groups,DC=example,DC=com")
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.CodeDNParseFailed, appErr.Code)
}

func TestExtractCN_GrammarViolations(t *testing.T) {
	testCases := []struct {
		name string
		dn   string
	}{
		{name: "embedded space", dn: "CN=Admin Group,OU=Groups,DC=example,DC=com"},
		{name: "dot", dn: "CN=admin.group,DC=example,DC=com"},
		{name: "at sign", dn: "CN=admins@example,DC=example,DC=com"},
		{name: "non-ascii", dn: "CN=grüppe,DC=example,DC=com"},
		{name: "too long", dn: "CN=" + strings.Repeat("a", 129) + ",DC=example,DC=com"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractCN(tc.dn)
			require.Error(t, err)

			appErr, ok := apperrors.IsAppError(err)
			require.True(t, ok)
			require.Equal(t, apperrors.CodeGroupNameInvalid, appErr.Code)
		})
	}
}

func TestValidGroupName(t *testing.T) {
	require.True(t, ValidGroupName("admins"))
	require.True(t, ValidGroupName("Dev_Team-01"))
	require.False(t, ValidGroupName(""))
	require.False(t, ValidGroupName("has space"))
	require.False(t, ValidGroupName(strings.Repeat("a", 129)))
}

func TestNormalizeDNSLabel(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "passthrough", input: "admins", want: "admins"},
		{name: "lowercased", input: "Admins", want: "admins"},
		{name: "underscores become hyphens", input: "dev_team", want: "dev-team"},
		{name: "trailing hyphen stripped", input: "admins-", want: "admins"},
		{name: "trailing underscore stripped", input: "admins_", want: "admins"},
		{name: "truncated to 63", input: "a" + strings.Repeat("b", 80), want: "a" + strings.Repeat("b", 62)},
		{name: "re-stripped after truncation", input: strings.Repeat("a", 62) + "_b", want: strings.Repeat("a", 62)},
		{name: "starts with digit", input: "1admins", wantErr: true},
		{name: "starts with underscore", input: "_admins", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "only stripped characters", input: "a---", want: "a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeDNSLabel(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
