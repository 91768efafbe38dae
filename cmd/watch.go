package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mlskit/uniffi-tools/pkg/project"
	"github.com/mlskit/uniffi-tools/pkg/trigger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [name=value...] [generator arguments...]",
	Short: "Re-runs the generator whenever a trigger path changes",
	Long: `Watches the trigger paths declared in bindgen.star (src/ and Cargo.toml by
default) and re-runs the generator after each change, with the same flag
forwarding as the generate command. Stops on interrupt.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		parsed := splitGenerateArgs(args)
		if parsed.help {
			return cmd.Help()
		}

		logger := zerolog.New(NewConsoleWriter())
		ctx := project.WithLogger(context.Background(), &logger)
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

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

		logger.Info().Msgf("Watching %d trigger paths", len(config.Watch))
		return trigger.Watch(ctx, config.WatchAbs(), debounceFromEnv(), func(ctx context.Context) error {
			code, err := runGenerator(ctx, config, table, parsed.forward, parsed.skipHooks)
			if err != nil {
				return err
			}

			if code != 0 {
				// keep watching, the next change may fix the input
				return eris.Errorf("generator exited with code %d", code)
			}

			return nil
		})
	},
}

// flag parsing is disabled for the watch command, so the debounce comes from
// the environment instead
func debounceFromEnv() time.Duration {
	value := os.Getenv("BINDGEN_DEBOUNCE")
	if value == "" {
		return trigger.DefaultDebounce
	}

	debounce, err := time.ParseDuration(value)
	if err != nil {
		return trigger.DefaultDebounce
	}

	return debounce
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
