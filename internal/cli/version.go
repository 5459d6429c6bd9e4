package cli

import (
	"github.com/spf13/cobra"
)

// Version is the release version, overridable at build time via
// -ldflags "-X .../internal/cli.Version=...".
var Version = "1.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the aslcat version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("aslcat " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
