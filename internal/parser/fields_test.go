package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitDisplayName(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{name: "two tokens", input: "John Smith", wantFirst: "John", wantLast: "Smith"},
		{name: "three tokens", input: "John Paul Smith", wantFirst: "John Paul", wantLast: "Smith"},
		{name: "single token", input: "Madonna", wantFirst: "Madonna", wantLast: ""},
		{name: "empty", input: "", wantFirst: "", wantLast: ""},
		{name: "extra whitespace", input: "  Alice   Anderson  ", wantFirst: "Alice", wantLast: "Anderson"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first, last := SplitDisplayName(tc.input)
			require.Equal(t, tc.wantFirst, first)
			require.Equal(t, tc.wantLast, last)
		})
	}
}

func TestParseActiveStatus(t *testing.T) {
	require.True(t, ParseActiveStatus("A"))
	require.True(t, ParseActiveStatus("a"))
	require.True(t, ParseActiveStatus("  A  "))

	for _, code := range []string{"I", "T", "L", "", "X", "Active"} {
		require.False(t, ParseActiveStatus(code), "status %q", code)
	}
}

func TestValidEmailFormat(t *testing.T) {
	require.True(t, ValidEmailFormat("alice@example.com"))
	require.True(t, ValidEmailFormat("first.last+tag@sub.example.co"))

	require.False(t, ValidEmailFormat("alice"))
	require.False(t, ValidEmailFormat("alice@"))
	require.False(t, ValidEmailFormat("@example.com"))
	require.False(t, ValidEmailFormat("alice@example"))
	require.False(t, ValidEmailFormat("alice @example.com"))
}
