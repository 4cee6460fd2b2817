// internal/cli/uninstall.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <name>",
	Aliases: []string{"remove"},
	Short:   "Remove an installed project",
	Long:    `Remove an installed project, its scripts and every library no other installed project uses.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	rec, err := mgr.Uninstall(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Uninstalled %s %s\n", rec.Name, rec.Version)
	return nil
}
