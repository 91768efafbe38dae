package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitGenerateArgs(t *testing.T) {
	parsed := splitGenerateArgs([]string{
		"--env-file", "ios.env",
		"--if-stale",
		"generate",
		"--swift-out-dir", "/tmp/out",
		"--library", "libmls.dylib",
		"deployment_target=15.0",
	})

	assert.Equal(t, "ios.env", parsed.envFile)
	assert.True(t, parsed.ifStale)
	assert.False(t, parsed.skipHooks)
	assert.Equal(t, map[string]string{"deployment_target": "15.0"}, parsed.options)

	// everything that isn't a tool argument is forwarded untouched,
	// including the recognized iOS flags
	assert.Equal(t, []string{
		"generate",
		"--swift-out-dir", "/tmp/out",
		"--library", "libmls.dylib",
	}, parsed.forward)
}

func TestSplitGenerateArgsTrailingEnvFile(t *testing.T) {
	// --env-file without a value is forwarded instead of consumed, the same
	// bounds policy as the recognized generator flags
	parsed := splitGenerateArgs([]string{"--env-file"})
	assert.Empty(t, parsed.envFile)
	assert.Equal(t, []string{"--env-file"}, parsed.forward)
}

func TestSplitGenerateArgsEmpty(t *testing.T) {
	parsed := splitGenerateArgs(nil)
	assert.Empty(t, parsed.forward)
	assert.Empty(t, parsed.options)
}
