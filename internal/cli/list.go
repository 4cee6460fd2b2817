// internal/cli/list.go
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed projects",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	records, err := mgr.List()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects installed.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tLIBRARIES\tSCRIPTS")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", rec.Name, rec.Version, len(rec.Dependencies), len(rec.Scripts))
	}
	return w.Flush()
}
