package shim

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// DefaultGenerator is the binary the shim hands control to when the project
// script doesn't name one.
const DefaultGenerator = "uniffi-bindgen"

// ResolveGenerator locates the generator binary. A binary installed into the
// workspace .tools directory wins over anything on PATH so fetch-tools results
// are picked up without shell setup.
func ResolveGenerator(projectRoot, name string) (string, error) {
	if name == "" {
		name = DefaultGenerator
	}

	if filepath.IsAbs(name) {
		return name, nil
	}

	if projectRoot != "" {
		local := filepath.Join(projectRoot, ".tools", name)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", eris.Wrapf(err, "could not find %s", name)
	}

	return path, nil
}

// Delegate hands control to the generator. The original argument vector is
// passed through untouched; the env table is merged into the inherited
// environment. Returns the generator's exit code.
func Delegate(ctx context.Context, binary string, args []string, table EnvTable) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = table.Apply(os.Environ())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if eris.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, eris.Wrapf(err, "failed to run %s", binary)
}
