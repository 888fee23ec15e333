package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, file string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--file", file}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTaskctlLifecycle(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tasks.json")

	out, err := run(t, file, "add", "Zakupy", "-d", "mleko")
	require.NoError(t, err)
	assert.Contains(t, out, "Zakupy")

	_, err = run(t, file, "add", "Inne")
	require.NoError(t, err)

	out, err = run(t, file, "done", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[x]")

	out, err = run(t, file, "list", "--completed", "false")
	require.NoError(t, err)
	assert.Contains(t, out, "Zakupy")
	assert.NotContains(t, out, "Inne")

	out, err = run(t, file, "list", "-q", "MLEKO")
	require.NoError(t, err)
	assert.Contains(t, out, "Zakupy")

	out, err = run(t, file, "rm", "1")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1\n", out)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), `"id"`))
}

func TestTaskctlErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tasks.json")

	_, err := run(t, file, "rm", "7")
	assert.Error(t, err)

	_, err = run(t, file, "done", "abc")
	assert.Error(t, err)

	_, err = run(t, file, "add", strings.Repeat("x", 51))
	assert.Error(t, err)

	_, err = run(t, file, "list", "--completed", "maybe")
	assert.Error(t, err)
}
