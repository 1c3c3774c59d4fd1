package run

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func needSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func TestExecTrimsOutput(t *testing.T) {
	needSh(t)

	out, err := Exec{}.Run(context.Background(), nil, "sh", "-c", "printf '  hello world \\n\\n'")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestExecPipesInput(t *testing.T) {
	needSh(t)

	out, err := Exec{}.Run(context.Background(), []byte("private key\n"), "sh", "-c", "cat")
	require.NoError(t, err)
	assert.Equal(t, "private key", out)
}

func TestExecReplacesInvalidUTF8(t *testing.T) {
	needSh(t)

	out, err := Exec{}.Run(context.Background(), nil, "sh", "-c", "printf 'a\\377b'")
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", out)
}

func TestExecNonZeroExit(t *testing.T) {
	needSh(t)

	out, err := Exec{}.Run(context.Background(), nil, "sh", "-c", "echo partial; echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Empty(t, out, "no output may be returned on failure")

	var cf *CommandFailedError
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, "sh", cf.Program)
	assert.Equal(t, []string{"-c", "echo partial; echo oops >&2; exit 3"}, cf.Args)
	assert.Equal(t, 3, cf.ExitCode)
	assert.Equal(t, "oops", cf.Stderr)
	assert.Contains(t, err.Error(), "exit code 3")
}

func TestExecMissingProgram(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), nil, "wglink-this-program-does-not-exist")

	var cf *CommandFailedError
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, -1, cf.ExitCode)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}
