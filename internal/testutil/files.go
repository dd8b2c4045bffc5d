package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to name inside a fresh temp directory and
// returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// WriteMachine writes an instruction file and a tape file side by side and
// returns their paths.
func WriteMachine(t *testing.T, instructions, tape string) (instrPath, tapePath string) {
	t.Helper()
	dir := t.TempDir()
	instrPath = filepath.Join(dir, "machine.tm")
	tapePath = filepath.Join(dir, "tape.txt")
	require.NoError(t, os.WriteFile(instrPath, []byte(instructions), 0o644))
	require.NoError(t, os.WriteFile(tapePath, []byte(tape), 0o644))
	return instrPath, tapePath
}
