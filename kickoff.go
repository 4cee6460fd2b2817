// kickoff.go
package kickoff

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/st3fan/kickoff/pkg/archive"
	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/env"
	"github.com/st3fan/kickoff/pkg/fetch"
	"github.com/st3fan/kickoff/pkg/index"
	"github.com/st3fan/kickoff/pkg/install"
	"github.com/st3fan/kickoff/pkg/manifest"
	"github.com/st3fan/kickoff/pkg/registry"
	"github.com/st3fan/kickoff/pkg/state"
)

// Re-export types for convenience
type (
	Config         = core.Config
	Manifest       = manifest.Manifest
	Record         = state.Record
	InstallOptions = install.Options
	Plan           = install.Plan
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// Manager installs manifests into the configured root
type Manager struct {
	config    *core.Config
	logger    *log.Logger
	resolver  core.Resolver
	store     *state.Store
	installer *install.Installer
	env       *env.Environment
}

// NewManager wires the resolver, downloader and state database for config.
// With no index configured the shared git index is synced on first use.
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	config.ApplyDefaults()
	logger := config.NewLogger()

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", config.Root, err)
	}
	config.Root = root

	resolver, err := newResolver(config, logger)
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(config.Root, ".kickoff", "state")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", stateDir, err)
	}
	store, err := state.Open(stateDir)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(&fetch.Config{
		CachePath:  config.CachePath,
		Timeout:    config.Timeout,
		VerifyHash: !config.NoVerify,
		Progress:   config.Progress,
		Logger:     logger,
	})

	return &Manager{
		config:   config,
		logger:   logger,
		resolver: resolver,
		store:    store,
		installer: install.New(install.Config{
			Root:      config.Root,
			Resolver:  resolver,
			Fetcher:   fetcher,
			Extractor: archive.New(logger),
			Store:     store,
			Logger:    logger,
		}),
		env: env.New(config.Root),
	}, nil
}

func newResolver(config *core.Config, logger *log.Logger) (core.Resolver, error) {
	switch {
	case strings.HasPrefix(config.Index, "http://"), strings.HasPrefix(config.Index, "https://"):
		logger.Printf("Using index server %s", config.Index)
		return index.NewClient(config.Index, fetch.NewClientWithTimeout(config.Timeout)), nil
	case config.Index != "":
		logger.Printf("Using index directory %s", config.Index)
		return registry.New(config.Index), nil
	}

	// Sync if the index doesn't exist yet
	dir := IndexDir(config)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := SyncIndex(context.Background(), config); err != nil {
			return nil, fmt.Errorf("failed to sync package index: %w", err)
		}
	}
	return registry.New(dir), nil
}

// SyncIndex clones the shared git index into IndexDir, replacing the
// previous copy only when the clone succeeds
func SyncIndex(ctx context.Context, config *Config) error {
	return index.Sync(ctx, config.IndexRepo, config.IndexBranch, IndexDir(config), os.Stderr)
}

// IndexDir returns where the shared git index is synced to
func IndexDir(config *Config) string {
	return filepath.Join(config.CachePath, "index")
}

// Sync refreshes the shared git index
func (m *Manager) Sync(ctx context.Context) error {
	return SyncIndex(ctx, m.config)
}

// Info reads the manifest at path (a file or a project directory)
func (m *Manager) Info(path string) (*Manifest, error) {
	return manifest.Load(path)
}

// Plan resolves the manifest at path without fetching or writing anything
func (m *Manager) Plan(ctx context.Context, path string, opts InstallOptions) (*Plan, error) {
	mf, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return m.installer.Plan(ctx, mf, m.withDefaults(opts))
}

// Install installs the manifest at path
func (m *Manager) Install(ctx context.Context, path string, opts InstallOptions) (*Record, error) {
	mf, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return m.InstallManifest(ctx, mf, opts)
}

// InstallManifest installs an already loaded manifest
func (m *Manager) InstallManifest(ctx context.Context, mf *Manifest, opts InstallOptions) (*Record, error) {
	return m.installer.Install(ctx, mf, m.withDefaults(opts))
}

func (m *Manager) withDefaults(opts InstallOptions) InstallOptions {
	if opts.Jobs <= 0 {
		opts.Jobs = m.config.Jobs
	}
	if opts.Platform == "" {
		opts.Platform = m.config.Platform
	}
	return opts
}

// Uninstall removes an installed package
func (m *Manager) Uninstall(ctx context.Context, name string) (*Record, error) {
	return m.installer.Uninstall(ctx, name)
}

// Installed returns the record of an installed package
func (m *Manager) Installed(name string) (*Record, error) {
	return m.store.Get(name)
}

// List returns every installed package
func (m *Manager) List() ([]*Record, error) {
	return m.store.List()
}

// Verify reports files of an installed package missing from disk
func (m *Manager) Verify(ctx context.Context, name string) ([]string, error) {
	return m.installer.Verify(ctx, name)
}

// Env returns the shell environment of the install root
func (m *Manager) Env() *env.Environment {
	return m.env
}

// EnvScript returns the shell commands exposing installed entry points
func (m *Manager) EnvScript(shell env.Shell) (string, error) {
	records, err := m.store.List()
	if err != nil {
		return "", err
	}
	return m.env.Script(shell, records)
}

// Index returns the name of the index packages are resolved against
func (m *Manager) Index() string {
	return m.resolver.Name()
}

// Close cleans up any resources used by the manager
func (m *Manager) Close() error {
	return m.store.Close()
}
