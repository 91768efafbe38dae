package shim

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript drops a small shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("the fixture is a shell script")
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestDelegateEmptyArgs(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "env.txt")
	script := writeScript(t, dir, "fake-bindgen",
		"echo \"$UNIFFI_FRAMEWORK_NAME\" > \""+dump+"\"\n")

	// an empty argument vector still hands control to the generator and the
	// table reaches its environment
	code, err := Delegate(context.Background(), script, nil,
		EnvTable{"UNIFFI_FRAMEWORK_NAME": "MyFramework"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	content, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, "MyFramework\n", string(content))
}

func TestDelegateForwardsArgsVerbatim(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "args.txt")
	script := writeScript(t, dir, "fake-bindgen", "echo \"$@\" > \""+dump+"\"\n")

	code, err := Delegate(context.Background(), script,
		[]string{"generate", "--swift-out-dir", "/tmp/out", "--library"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	content, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, "generate --swift-out-dir /tmp/out --library\n", string(content))
}

func TestDelegateExitCode(t *testing.T) {
	script := writeScript(t, t.TempDir(), "fake-bindgen", "exit 3\n")

	code, err := Delegate(context.Background(), script, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestResolveGeneratorPrefersLocalTools(t *testing.T) {
	root := t.TempDir()
	toolsDir := filepath.Join(root, ".tools")
	require.NoError(t, os.Mkdir(toolsDir, 0o770))
	local := writeScript(t, toolsDir, "fake-gen", "")

	pathDir := t.TempDir()
	onPath := writeScript(t, pathDir, "fake-gen", "")
	t.Setenv("PATH", pathDir)

	// a fetched copy under .tools wins over PATH
	resolved, err := ResolveGenerator(root, "fake-gen")
	require.NoError(t, err)
	assert.Equal(t, local, resolved)

	// without one, the PATH lookup applies
	resolved, err = ResolveGenerator(t.TempDir(), "fake-gen")
	require.NoError(t, err)
	assert.Equal(t, onPath, resolved)
}

func TestResolveGeneratorMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := ResolveGenerator(t.TempDir(), "no-such-generator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-generator")
}
