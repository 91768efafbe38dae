package cmd

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mlskit/uniffi-tools/pkg"
)

var packBundleCmd = &cobra.Command{
	Use:   "pack-bundle bundle_name bindings_directory",
	Short: "Packs a generated bindings directory into a compressed bundle",
	Long: `Pass the name of the bundle file that should be generated and the directory
holding the generator output. The bundle is a single compressed artifact
suitable for distribution; assembling platform frameworks from it is up to
the consumer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return eris.New("Expected 2 arguments!")
		}

		writer, err := pkg.NewBundleWriter(args[0])
		if err != nil {
			return err
		}

		err = writer.AddDirectory(args[1])
		if err != nil {
			return err
		}

		return writer.Close()
	},
}

var unpackBundleCmd = &cobra.Command{
	Use:   "unpack-bundle bundle_name destination_directory",
	Short: "Unpacks a bindings bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return eris.New("Expected 2 arguments!")
		}

		bundle, err := pkg.OpenBundle(args[0])
		if err != nil {
			return err
		}
		defer bundle.Close()

		return bundle.Extract(args[1])
	},
}

func init() {
	rootCmd.AddCommand(packBundleCmd)
	rootCmd.AddCommand(unpackBundleCmd)
}
