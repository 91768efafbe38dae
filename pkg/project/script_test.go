package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	logger := zerolog.Nop()
	return WithLogger(context.Background(), &logger)
}

func writeScript(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ScriptName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadScript(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, `
watch("src/")
watch("Cargo.toml")
watch("uniffi-bindgen/src/")

env("UNIFFI_FRAMEWORK_NAME", "MyFramework")
hook("swiftformat generated/")
generator("uniffi-bindgen-swift")
`)

	config, err := Load(testCtx(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, config.Root)
	assert.Equal(t, []string{"src/", "Cargo.toml", "uniffi-bindgen/src/"}, config.Watch)
	assert.Equal(t, map[string]string{"UNIFFI_FRAMEWORK_NAME": "MyFramework"}, config.Env)
	assert.Equal(t, []string{"swiftformat generated/"}, config.Hooks)
	assert.Equal(t, "uniffi-bindgen-swift", config.Generator)
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, `
target = option("deployment_target", default="13.0", help="minimum iOS version")
env("UNIFFI_IOS_DEPLOYMENT_TARGET", target)
`)

	config, err := Load(testCtx(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "13.0", config.Env["UNIFFI_IOS_DEPLOYMENT_TARGET"])

	opt, ok := config.Options["deployment_target"]
	require.True(t, ok)
	assert.Equal(t, "13.0", opt.Default())
	assert.Equal(t, "minimum iOS version", opt.Help)

	config, err = Load(testCtx(), path, map[string]string{"deployment_target": "15.0"})
	require.NoError(t, err)
	assert.Equal(t, "15.0", config.Env["UNIFFI_IOS_DEPLOYMENT_TARGET"])
}

func TestLoadWatchDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, `env("UNIFFI_FRAMEWORK_NAME", "X")`)

	config, err := Load(testCtx(), path, nil)
	require.NoError(t, err)

	// a script that declares no watch paths keeps the default triggers
	assert.Equal(t, []string{"src/", "Cargo.toml"}, config.Watch)
}

func TestLoadScriptError(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, `error("this project is broken")`)

	_, err := Load(testCtx(), path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "this project is broken")
}

func TestFindScript(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, `watch("src/")`)

	nested := filepath.Join(root, "uniffi-bindgen", "src")
	require.NoError(t, os.MkdirAll(nested, 0o700))

	found, err := FindScript(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ScriptName), found)
}

func TestLoadOrDefaults(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadOrDefaults(testCtx(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/", "Cargo.toml"}, config.Watch)
	assert.Empty(t, config.Generator)
	assert.Equal(t, []string{filepath.Join(dir, "src"), filepath.Join(dir, "Cargo.toml")}, config.WatchAbs())
}
