package cmd

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mlskit/uniffi-tools/pkg/project"
	"github.com/mlskit/uniffi-tools/pkg/trigger"
)

var declareTriggersCmd = &cobra.Command{
	Use:   "declare-triggers",
	Short: "Emits the build trigger declarations for the orchestration layer",
	Long: `Prints one rerun directive per declared trigger path plus the surrounding
diagnostics. The build orchestration layer reads these lines from stdout and
invalidates its cached artifact whenever one of the paths changes. This never
fails and never inspects any state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zerolog.New(NewConsoleWriter())
		ctx := project.WithLogger(context.Background(), &logger)

		wd, err := os.Getwd()
		if err != nil {
			return eris.Wrap(err, "failed to retrieve the current working directory")
		}

		config, err := project.LoadOrDefaults(ctx, wd, nil)
		if err != nil {
			return err
		}

		return trigger.FromConfig(config).Emit(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(declareTriggersCmd)
}
