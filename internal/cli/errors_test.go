package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUsageErrorIsExitCode2(t *testing.T) {
	err := usageError("bad flag %s", "--pid")

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Error(), "bad flag --pid")
}

func TestRuntimeErrorIsExitCode1(t *testing.T) {
	err := runtimeError(errors.New("attach failed"))

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 1, exitErr.Code)
	require.Equal(t, "attach failed", exitErr.Error())
}

func TestExitErrorUnwraps(t *testing.T) {
	cause := errors.New("root cause")
	err := &ExitError{Code: 1, Err: cause}

	require.Equal(t, cause, errors.Unwrap(err))
	require.True(t, errors.Is(err, cause))
}
