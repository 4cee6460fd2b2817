// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/st3fan/kickoff"
	"github.com/st3fan/kickoff/pkg/core"
)

var (
	cfgFile   string
	rootDir   string
	indexFlag string
	cacheDir  string
	debug     bool
	config    *core.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kickoff",
	Short: "Install a project and its pinned dependencies",
	Long: `kickoff - pinned package installer

Installs a project described by a kickoff.toml manifest: every dependency
must be pinned with ==, is resolved against the package index and is
installed together with the project's scripts, or nothing is installed.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/kickoff/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "install root (default is $KICKOFF_ROOT or $HOME/.kickoff)")
	rootCmd.PersistentFlags().StringVar(&indexFlag, "index", "", "package index directory or URL (default is the synced index)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "download and index cache (default is $HOME/.cache/kickoff)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveIndexCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	// Override config with flags
	if rootDir != "" {
		config.Root = rootDir
	}
	if indexFlag != "" {
		config.Index = indexFlag
	}
	if cacheDir != "" {
		config.CachePath = cacheDir
	}
	if debug {
		config.Debug = true
	}
}

func newManager() (*kickoff.Manager, error) {
	mgr, err := kickoff.NewManager(config)
	if err != nil {
		return nil, fmt.Errorf("initializing kickoff: %w", err)
	}
	return mgr, nil
}
