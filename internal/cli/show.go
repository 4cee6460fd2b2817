// internal/cli/show.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an installed project",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	rec, err := mgr.Installed(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name: %s\n", rec.Name)
	fmt.Fprintf(out, "Version: %s\n", rec.Version)
	if rec.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", rec.Description)
	}
	fmt.Fprintf(out, "Installed: %s\n", rec.InstalledAt.Local().Format(time.RFC1123))
	for _, lib := range rec.Dependencies {
		fmt.Fprintf(out, "  lib  %s==%s  %s\n", lib.Name, lib.Version, lib.Path)
	}
	for _, script := range rec.Scripts {
		fmt.Fprintf(out, "  bin  %s\n", script.Path)
	}

	return nil
}
