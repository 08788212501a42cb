package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeConfigInvalid, "tenant id missing", KindUsage)
	require.Equal(t, "CONFIG_INVALID: tenant id missing", err.Error())

	wrapped := Wrap(errors.New("boom"), CodeAPIRequestFailed, "list groups", KindRuntime)
	require.Equal(t, "API_REQUEST_FAILED: list groups: boom", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(inner, CodeAPIRequestFailed, "list groups", KindRuntime)
	require.ErrorIs(t, err, inner)
}

func TestIsAppError(t *testing.T) {
	appErr, ok := IsAppError(Usage(CodeCSVEmpty, "empty"))
	require.True(t, ok)
	require.Equal(t, CodeCSVEmpty, appErr.Code)

	// Found through wrapping chains.
	chained := fmt.Errorf("outer: %w", Runtime(CodeAPITransient, "throttled"))
	appErr, ok = IsAppError(chained)
	require.True(t, ok)
	require.Equal(t, CodeAPITransient, appErr.Code)

	_, ok = IsAppError(errors.New("plain"))
	require.False(t, ok)
}

func TestIsUsage(t *testing.T) {
	require.True(t, IsUsage(Usage(CodeCSVMissingColumns, "missing")))
	require.True(t, IsUsage(fmt.Errorf("outer: %w", ErrCSVNotFoundf("/tmp/x.csv"))))
	require.False(t, IsUsage(Runtime(CodeAPIRequestFailed, "failed")))
	require.False(t, IsUsage(errors.New("plain")))
	require.False(t, IsUsage(nil))
}

func TestConstructors(t *testing.T) {
	nf := ErrCSVNotFoundf("/data/export.csv")
	require.Equal(t, CodeCSVNotFound, nf.Code)
	require.Contains(t, nf.Message, "/data/export.csv")
	require.Equal(t, KindUsage, nf.Kind)

	auth := ErrAuthConfigInvalid("no credentials")
	require.Equal(t, CodeAuthConfigInvalid, auth.Code)
	require.Equal(t, KindUsage, auth.Kind)
}
