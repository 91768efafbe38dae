package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "uniffi-tool",
	Short: "Packaging tools for UniFFI Swift bindings",
	Long: `This command bundles the tools used to package the Swift bindings of a
UniFFI crate. This includes the build trigger declaration, the flag-forwarding
wrapper around uniffi-bindgen, a file watcher and tools to download & install
the generator toolchain.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
