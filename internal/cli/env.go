// internal/cli/env.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/st3fan/kickoff/pkg/env"
)

var envShell string

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print shell commands that put installed scripts on PATH",
	Long: `Print shell commands that put installed scripts on PATH.

Examples:
  eval "$(kickoff env)"
  kickoff env --shell fish | source`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

func init() {
	envCmd.Flags().StringVar(&envShell, "shell", "", "shell dialect: sh, bash, zsh or fish (default from $SHELL)")
}

func runEnv(cmd *cobra.Command, args []string) error {
	shell := env.DetectShell()
	if envShell != "" {
		var err error
		shell, err = env.ParseShell(envShell)
		if err != nil {
			return err
		}
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	script, err := mgr.EnvScript(shell)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), script)
	return nil
}
