package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlskit/uniffi-tools/pkg/project"
)

func testCtx() context.Context {
	logger := zerolog.Nop()
	return project.WithLogger(context.Background(), &logger)
}

func TestRunHooks(t *testing.T) {
	var out strings.Builder
	err := Run(testCtx(), t.TempDir(), Env(nil), []string{`echo "bindings ready"`}, &out, &out)

	require.NoError(t, err)
	assert.Equal(t, "bindings ready\n", out.String())
}

func TestRunHookEnv(t *testing.T) {
	table := map[string]string{"UNIFFI_FRAMEWORK_NAME": "MyFramework"}

	var out strings.Builder
	err := Run(testCtx(), t.TempDir(), Env(table), []string{`echo "$UNIFFI_FRAMEWORK_NAME"`}, &out, &out)

	require.NoError(t, err)
	assert.Equal(t, "MyFramework\n", out.String())
}

func TestRunHookFailureAborts(t *testing.T) {
	dir := t.TempDir()

	var out strings.Builder
	err := Run(testCtx(), dir, Env(nil), []string{
		"false",
		"echo never > marker.txt",
	}, &out, &out)

	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "marker.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunNoHooks(t *testing.T) {
	require.NoError(t, Run(testCtx(), t.TempDir(), nil, nil, nil, nil))
}
