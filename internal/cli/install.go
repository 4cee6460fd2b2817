// internal/cli/install.go
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/st3fan/kickoff"
)

var (
	installForce    bool
	installDryRun   bool
	installJobs     int
	installNoVerify bool
	installPlatform string
)

var installCmd = &cobra.Command{
	Use:   "install [manifest]",
	Short: "Install a project and its dependencies",
	Long: `Install the project described by a manifest (default ./kickoff.toml).

All dependencies are resolved and downloaded before anything is written; if
any step fails nothing is installed.

Examples:
  kickoff install
  kickoff install ./moz-kickoff-stats
  kickoff install kickoff.yaml --dry-run
  kickoff install --index https://index.example.com --jobs 8`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "replace an existing install and take over conflicting scripts")
	installCmd.Flags().BoolVarP(&installDryRun, "dry-run", "n", false, "resolve dependencies and print the plan without installing")
	installCmd.Flags().IntVarP(&installJobs, "jobs", "j", 0, "parallel downloads (default from config)")
	installCmd.Flags().BoolVar(&installNoVerify, "no-verify", false, "skip checksum verification of downloads")
	installCmd.Flags().StringVar(&installPlatform, "platform", "", "target platform, e.g. linux/amd64")
}

func manifestArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if installNoVerify {
		config.NoVerify = true
	}
	config.Progress = !config.Debug

	mgr, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	opts := kickoff.InstallOptions{
		Force:    installForce,
		DryRun:   installDryRun,
		Jobs:     installJobs,
		Platform: installPlatform,
	}

	out := cmd.OutOrStdout()

	if installDryRun {
		plan, err := mgr.Plan(ctx, manifestArg(args), opts)
		if err != nil {
			return err
		}
		printPlan(out, plan)
		return nil
	}

	rec, err := mgr.Install(ctx, manifestArg(args), opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Installed %s %s\n", rec.Name, rec.Version)
	for _, lib := range rec.Dependencies {
		fmt.Fprintf(out, "  lib  %s==%s\n", lib.Name, lib.Version)
	}
	for _, script := range rec.Scripts {
		fmt.Fprintf(out, "  bin  %s\n", script.Path)
	}

	return nil
}

func printPlan(out io.Writer, plan *kickoff.Plan) {
	fmt.Fprintf(out, "Would install %s %s for %s\n", plan.Manifest.Name, plan.Manifest.Version, plan.Platform)
	if plan.Replaces != nil {
		fmt.Fprintf(out, "  replacing installed version %s\n", plan.Replaces.Version)
	}
	for _, lib := range plan.Libraries {
		if lib.Present {
			fmt.Fprintf(out, "  lib  %s (already present)\n", lib.Dependency)
			continue
		}
		fmt.Fprintf(out, "  lib  %s from %s\n", lib.Dependency, lib.Artifact.URL)
	}
	for _, script := range plan.Scripts {
		fmt.Fprintf(out, "  bin  %s\n", script.Path)
	}
}
