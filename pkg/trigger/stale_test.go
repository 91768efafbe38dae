package trigger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestStaleNoPreviousRun(t *testing.T) {
	stale, err := Stale([]string{t.TempDir()}, time.Time{})
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestStaleFresh(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(dir, "src", "lib.rs"), old)
	writeFile(t, filepath.Join(dir, "Cargo.toml"), old)

	stale, err := Stale([]string{filepath.Join(dir, "src"), filepath.Join(dir, "Cargo.toml")}, time.Now())
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestStaleChangedInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "lib.rs"), time.Now().Add(time.Minute))

	stale, err := Stale([]string{filepath.Join(dir, "src")}, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestStaleMissingPathsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Cargo.toml"), time.Now().Add(-time.Hour))

	stale, err := Stale([]string{filepath.Join(dir, "missing"), filepath.Join(dir, "Cargo.toml")}, time.Now())
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestStampRoundtrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".tools", StampName)

	stamp := NewStamp(map[string]string{"UNIFFI_FRAMEWORK_NAME": "MyFramework"})
	require.NoError(t, WriteStamp(file, stamp))

	loaded, err := ReadStamp(file)
	require.NoError(t, err)
	assert.Equal(t, stamp.RunID, loaded.RunID)
	assert.True(t, loaded.Matches(map[string]string{"UNIFFI_FRAMEWORK_NAME": "MyFramework"}))
	assert.False(t, loaded.Matches(map[string]string{"UNIFFI_FRAMEWORK_NAME": "Other"}))
	assert.False(t, loaded.Matches(nil))
}

func TestStampMissingFile(t *testing.T) {
	stamp, err := ReadStamp(filepath.Join(t.TempDir(), "nope.stamp"))
	require.NoError(t, err)
	assert.True(t, stamp.Time.IsZero())
}
