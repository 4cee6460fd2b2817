// internal/cli/info.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/st3fan/kickoff/pkg/manifest"
)

var infoCmd = &cobra.Command{
	Use:   "info [manifest]",
	Short: "Show the metadata of a manifest",
	Long:  `Display the metadata, dependencies and scripts declared by a manifest (default ./kickoff.toml).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(manifestArg(args))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name: %s\n", m.Name)
	fmt.Fprintf(out, "Version: %s\n", m.Version)
	if m.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", m.Description)
	}
	if m.URL != "" {
		fmt.Fprintf(out, "URL: %s\n", m.URL)
	}
	if m.Author != "" {
		if m.AuthorEmail != "" {
			fmt.Fprintf(out, "Author: %s <%s>\n", m.Author, m.AuthorEmail)
		} else {
			fmt.Fprintf(out, "Author: %s\n", m.Author)
		}
	}
	if len(m.Dependencies) > 0 {
		fmt.Fprintln(out, "Dependencies:")
		for _, dep := range m.Dependencies {
			fmt.Fprintf(out, "  %s\n", dep)
		}
	}
	if len(m.Scripts) > 0 {
		fmt.Fprintln(out, "Scripts:")
		for _, script := range m.Scripts {
			fmt.Fprintf(out, "  %s\n", script)
		}
	}

	return nil
}
