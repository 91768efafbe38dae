package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mlskit/uniffi-tools/pkg/hooks"
	"github.com/mlskit/uniffi-tools/pkg/project"
	"github.com/mlskit/uniffi-tools/pkg/shim"
	"github.com/mlskit/uniffi-tools/pkg/trigger"
)

// generateArgs is the result of splitting the raw argument vector into the
// parts meant for this tool and the vector forwarded to the generator.
// Flag parsing stays permissive: anything we don't recognize is forwarded
// instead of rejected.
type generateArgs struct {
	envFile   string
	ifStale   bool
	skipHooks bool
	help      bool
	options   map[string]string
	forward   []string
}

func splitGenerateArgs(args []string) generateArgs {
	result := generateArgs{options: map[string]string{}}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--env-file" && i+1 < len(args):
			result.envFile = args[i+1]
			i++
		case arg == "--if-stale":
			result.ifStale = true
		case arg == "--skip-hooks":
			result.skipHooks = true
		case arg == "--help" || arg == "-h":
			result.help = true
		case !strings.HasPrefix(arg, "-") && strings.Contains(arg, "="):
			pos := strings.Index(arg, "=")
			result.options[arg[:pos]] = arg[pos+1:]
		default:
			result.forward = append(result.forward, arg)
		}
	}

	return result
}

var generateCmd = &cobra.Command{
	Use:   "generate [name=value...] [generator arguments...]",
	Short: "Forwards the iOS flags to the environment and hands off to uniffi-bindgen",
	Long: `Scans the argument vector for --swift-out-dir, --framework-name and
--ios-deployment-target, exports the matching UNIFFI_* variables and then
delegates to the generator with the unmodified argument vector. Unrecognized
flags are passed through, the generator owns all further argument handling.

Accepted tool arguments (consumed, not forwarded):
  --env-file <file>   seed the environment table from an env file
  --if-stale          skip the run when no trigger path changed
  --skip-hooks        don't run the hooks declared in bindgen.star
  name=value          override an option() declared in bindgen.star`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		parsed := splitGenerateArgs(args)
		if parsed.help {
			return cmd.Help()
		}

		logger := zerolog.New(NewConsoleWriter())
		ctx := project.WithLogger(context.Background(), &logger)

		wd, err := os.Getwd()
		if err != nil {
			return eris.Wrap(err, "failed to retrieve the current working directory")
		}

		config, err := project.LoadOrDefaults(ctx, wd, parsed.options)
		if err != nil {
			return err
		}

		table, err := buildEnvTable(config, parsed)
		if err != nil {
			return err
		}

		if parsed.ifStale {
			stamp, err := trigger.ReadStamp(trigger.StampPath(config.Root))
			if err != nil {
				return err
			}

			if stamp.Matches(table) {
				stale, err := trigger.Stale(config.WatchAbs(), stamp.Time)
				if err != nil {
					return err
				}

				if !stale {
					logger.Info().Msg("nothing to do (no trigger path changed)")
					return nil
				}
			}
		}

		code, err := runGenerator(ctx, config, table, parsed.forward, parsed.skipHooks)
		if err != nil {
			return err
		}

		if code != 0 {
			// the generator owns the outcome, pass its exit code along
			os.Exit(code)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func buildEnvTable(config *project.Config, parsed generateArgs) (shim.EnvTable, error) {
	table := shim.EnvTable{}
	for name, value := range config.Env {
		table[name] = value
	}

	if parsed.envFile != "" {
		defaults, err := shim.LoadDefaults(parsed.envFile)
		if err != nil {
			return nil, err
		}

		for name, value := range defaults {
			table[name] = value
		}
	}

	// command line flags win over script and env-file values
	return shim.Scan(parsed.forward, table), nil
}

// runGenerator delegates to the generator and, on success, runs the declared
// hooks and records the run stamp. Returns the generator's exit code so the
// caller decides whether to propagate or keep going (watch mode).
func runGenerator(ctx context.Context, config *project.Config, table shim.EnvTable, forward []string, skipHooks bool) (int, error) {
	binary, err := shim.ResolveGenerator(config.Root, config.Generator)
	if err != nil {
		return -1, err
	}

	project.Log(ctx).Info().Msgf("Delegating to %s", binary)
	code, err := shim.Delegate(ctx, binary, forward, table)
	if err != nil || code != 0 {
		return code, err
	}

	if !skipHooks {
		err = hooks.Run(ctx, config.Root, hooks.Env(table), config.Hooks, os.Stdout, os.Stderr)
		if err != nil {
			return 0, err
		}
	}

	err = trigger.WriteStamp(trigger.StampPath(config.Root), trigger.NewStamp(table))
	if err != nil {
		project.Log(ctx).Warn().Err(err).Msg("Failed to record the run stamp")
	}

	return 0, nil
}
