// pkg/core/config.go
package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultIndexRepo is the git repository holding the shared package index
	DefaultIndexRepo = "https://github.com/st3fan/kickoff-index"

	// DefaultIndexBranch is the branch of DefaultIndexRepo that is synced
	DefaultIndexBranch = "main"
)

// Config holds kickoff configuration
type Config struct {
	Root        string        `yaml:"root"`         // install root (bin/, lib/, .kickoff/)
	CachePath   string        `yaml:"cache_path"`   // downloads and the synced index
	Index       string        `yaml:"index"`        // index directory or http(s) URL; empty uses the synced index
	IndexRepo   string        `yaml:"index_repo"`   // git repository synced when Index is empty
	IndexBranch string        `yaml:"index_branch"` // branch of IndexRepo
	Platform    string        `yaml:"platform"`     // artifact platform, auto-detected if empty
	Timeout     time.Duration `yaml:"timeout"`
	Jobs        int           `yaml:"jobs"` // parallel downloads
	NoVerify    bool          `yaml:"no_verify"`
	Debug       bool          `yaml:"debug"`

	// Progress draws download progress bars on stderr
	Progress bool `yaml:"-"`

	// Logger for custom logging
	Logger *log.Logger `yaml:"-"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default value
func (c *Config) ApplyDefaults() {
	if c.Root == "" {
		c.Root = getDefaultRoot()
	}
	if c.CachePath == "" {
		c.CachePath = getDefaultCachePath()
	}
	if c.IndexRepo == "" {
		c.IndexRepo = DefaultIndexRepo
	}
	if c.IndexBranch == "" {
		c.IndexBranch = DefaultIndexBranch
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.Jobs <= 0 {
		c.Jobs = runtime.NumCPU()
		if c.Jobs > 4 {
			c.Jobs = 4
		}
	}
}

// NewLogger returns the logger the rest of kickoff writes debug output to
func (c *Config) NewLogger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.Debug {
		return log.New(os.Stdout, "[kickoff] ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// DefaultConfigPath returns $HOME/.config/kickoff/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kickoff", "config.yaml"), nil
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func getDefaultRoot() string {
	if path := os.Getenv("KICKOFF_ROOT"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/usr/local/kickoff"
	}

	return filepath.Join(home, ".kickoff")
}

func getDefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "kickoff")
	}
	return filepath.Join(home, ".cache", "kickoff")
}
