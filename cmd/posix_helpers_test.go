package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))
}

func TestMvMultipleSourcesMissingDest(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a")
	second := filepath.Join(dir, "b")
	writeFixture(t, first)
	writeFixture(t, second)

	// moving several items requires an existing destination directory
	err := mvCmd.RunE(mvCmd, []string{first, second, filepath.Join(dir, "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	// nothing was moved
	assert.FileExists(t, first)
	assert.FileExists(t, second)
}

func TestMvRename(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a")
	dest := filepath.Join(dir, "renamed")
	writeFixture(t, source)

	require.NoError(t, mvCmd.RunE(mvCmd, []string{source, dest}))
	assert.NoFileExists(t, source)
	assert.FileExists(t, dest)
}

func TestMvIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a")
	second := filepath.Join(dir, "b")
	writeFixture(t, first)
	writeFixture(t, second)

	dest := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(dest, 0o770))

	require.NoError(t, mvCmd.RunE(mvCmd, []string{first, second, dest}))
	assert.FileExists(t, filepath.Join(dest, "a"))
	assert.FileExists(t, filepath.Join(dest, "b"))
}
