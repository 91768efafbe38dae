// Package hooks runs the post-generation commands declared by the project
// script. Commands go through mvdan.cc/sh so they behave the same on every
// platform instead of depending on whatever /bin/sh happens to be.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/mlskit/uniffi-tools/pkg/project"
)

var defaultExecHandler = interp.DefaultExecHandler(2)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "mv":
			fallthrough
		case "rm":
			fallthrough
		case "mkdir":
			// always use our cross-platform implementation for these operations to make sure
			// they behave consistently
			args = append([]string{"uniffi-tool"}, args...)
		}
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// Run executes the given hook commands in order, in dir, with the passed
// environment (KEY=value form). The first failing command aborts the run.
func Run(ctx context.Context, dir string, env []string, cmds []string, stdout, stderr io.Writer) error {
	if len(cmds) == 0 {
		return nil
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, stdout, stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize hook runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	for idx, cmd := range cmds {
		result, err := parser.Parse(strings.NewReader(cmd), fmt.Sprintf("hook:%d", idx))
		if err != nil {
			return eris.Wrapf(err, "failed to parse hook %s", cmd)
		}

		for _, stmt := range result.Stmts {
			strBuffer.Reset()
			printer.Print(&strBuffer, stmt)
			project.Log(ctx).Info().
				Bool("command", true).
				Msg(strBuffer.String())

			err = runner.Run(ctx, stmt)
			if err != nil {
				return eris.Wrapf(err, "hook failed: %s", cmd)
			}

			if runner.Exited() {
				return nil
			}
		}
	}

	return nil
}

// Env builds the hook environment from the inherited process environment and
// the generator env table.
func Env(table map[string]string) []string {
	env := os.Environ()
	for name, value := range table {
		env = append(env, fmt.Sprintf("%s=%s", name, value))
	}

	return env
}
