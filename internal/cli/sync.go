// internal/cli/sync.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/st3fan/kickoff"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Update the shared package index",
	Long:  `Clone the latest package index from the configured git repository into the cache.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return kickoff.SyncIndex(cmd.Context(), config)
	},
}
