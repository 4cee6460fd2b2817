// internal/cli/verify.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <name>",
	Short: "Check that an installed project is complete on disk",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	problems, err := mgr.Verify(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(problems) == 0 {
		fmt.Fprintf(out, "✓ %s is intact\n", args[0])
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(out, "✗ %s\n", p)
	}
	return fmt.Errorf("%s: %d problems found, reinstall with --force", args[0], len(problems))
}
