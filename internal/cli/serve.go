// internal/cli/serve.go
package cli

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/st3fan/kickoff/pkg/index"
	"github.com/st3fan/kickoff/pkg/registry"
)

var serveAddr string

var serveIndexCmd = &cobra.Command{
	Use:   "serve-index <dir>",
	Short: "Serve a package index over HTTP",
	Long: `Serve an index directory (holding packages/<name>/index.toml) so that
kickoff can install from it with --index http://host:port.`,
	Args: cobra.ExactArgs(1),
	RunE: runServeIndex,
}

func init() {
	serveIndexCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
}

func runServeIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.New(os.Stderr, "[kickoff] ", log.LstdFlags)
	srv := index.NewServer(registry.New(args[0]), logger)
	return srv.ListenAndServe(ctx, serveAddr)
}
