// internal/cli/version.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version of the kickoff command
const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kickoff version %s\n", Version)
		fmt.Fprintln(out, "Pinned package installer")
		fmt.Fprintln(out, "https://github.com/st3fan/kickoff")
	},
}
