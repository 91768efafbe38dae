package shim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanOutDir(t *testing.T) {
	table := Scan([]string{"--swift-out-dir", "/tmp/out"}, nil)

	assert.Equal(t, "/tmp/out", table["UNIFFI_SWIFT_OUT_DIR"])
	assert.Len(t, table, 1)
}

func TestScanMultipleFlags(t *testing.T) {
	table := Scan([]string{"--framework-name", "MyFramework", "--ios-deployment-target", "13.0"}, nil)
	assert.Equal(t, "MyFramework", table["UNIFFI_FRAMEWORK_NAME"])
	assert.Equal(t, "13.0", table["UNIFFI_IOS_DEPLOYMENT_TARGET"])

	// order doesn't matter
	table = Scan([]string{"--ios-deployment-target", "13.0", "--framework-name", "MyFramework"}, nil)
	assert.Equal(t, "MyFramework", table["UNIFFI_FRAMEWORK_NAME"])
	assert.Equal(t, "13.0", table["UNIFFI_IOS_DEPLOYMENT_TARGET"])
}

func TestScanTrailingFlag(t *testing.T) {
	table := Scan([]string{"generate", "--swift-out-dir"}, nil)
	assert.Empty(t, table)
}

func TestScanUnknownFlags(t *testing.T) {
	table := Scan([]string{"--verbose"}, nil)
	assert.Empty(t, table)

	table = Scan([]string{"--verbose", "--swift-out-dir", "/tmp/out", "--library"}, nil)
	assert.Equal(t, EnvTable{"UNIFFI_SWIFT_OUT_DIR": "/tmp/out"}, table)
}

func TestScanEmptyArgs(t *testing.T) {
	table := Scan(nil, nil)
	assert.Empty(t, table)
}

func TestScanIdempotent(t *testing.T) {
	args := []string{"--framework-name", "First", "--framework-name", "Second"}

	table := Scan(args, nil)
	assert.Equal(t, "Second", table["UNIFFI_FRAMEWORK_NAME"])

	table = Scan(args, table)
	assert.Equal(t, EnvTable{"UNIFFI_FRAMEWORK_NAME": "Second"}, table)
}

func TestScanSeededDefaults(t *testing.T) {
	table := EnvTable{"UNIFFI_FRAMEWORK_NAME": "Default"}
	table = Scan([]string{"--swift-out-dir", "/tmp/out"}, table)

	assert.Equal(t, "Default", table["UNIFFI_FRAMEWORK_NAME"])
	assert.Equal(t, "/tmp/out", table["UNIFFI_SWIFT_OUT_DIR"])

	// flags win over seeded values
	table = Scan([]string{"--framework-name", "Override"}, table)
	assert.Equal(t, "Override", table["UNIFFI_FRAMEWORK_NAME"])
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindgen.env")
	content := "UNIFFI_FRAMEWORK_NAME=MyFramework\nUNIFFI_IOS_DEPLOYMENT_TARGET=13.0\nUNRELATED=x\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := LoadDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, EnvTable{
		"UNIFFI_FRAMEWORK_NAME":        "MyFramework",
		"UNIFFI_IOS_DEPLOYMENT_TARGET": "13.0",
	}, table)
}

func TestApply(t *testing.T) {
	table := EnvTable{"UNIFFI_SWIFT_OUT_DIR": "/new"}
	env := table.Apply([]string{"PATH=/bin", "UNIFFI_SWIFT_OUT_DIR=/old"})

	assert.Contains(t, env, "PATH=/bin")
	assert.Contains(t, env, "UNIFFI_SWIFT_OUT_DIR=/new")
	assert.NotContains(t, env, "UNIFFI_SWIFT_OUT_DIR=/old")
}
