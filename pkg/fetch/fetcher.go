// pkg/fetch/fetcher.go
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/st3fan/kickoff/pkg/core"
)

// Config configures artifact downloads
type Config struct {
	CachePath  string        // downloads land in CachePath/downloads
	Timeout    time.Duration // per request
	VerifyHash bool          // check artifacts against the index checksum
	Progress   bool          // draw a progress bar on stderr
	Logger     *log.Logger
}

// Fetcher downloads release artifacts into the cache and verifies them
type Fetcher struct {
	client *Client
	config *Config
	logger *log.Logger
}

// New creates a Fetcher
func New(cfg *Config) *Fetcher {
	if cfg == nil {
		cfg = &Config{VerifyHash: true}
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(os.TempDir(), "kickoff")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Fetcher{
		client: NewClientWithTimeout(cfg.Timeout),
		config: cfg,
		logger: logger,
	}
}

// Fetch makes the artifact of rel available on local disk and returns its
// path. A cached copy that still verifies is reused.
func (f *Fetcher) Fetch(ctx context.Context, rel *core.Release, art *core.Artifact) (string, error) {
	pin := rel.Name + "==" + rel.Version

	dest, err := f.cachePath(rel, art)
	if err != nil {
		return "", &core.Error{Op: "fetch", Package: pin, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	if _, err := os.Stat(dest); err == nil {
		if err := f.verify(dest, art); err == nil {
			f.logger.Printf("Using cached %s", dest)
			return dest, nil
		}
		f.logger.Printf("Cached %s failed verification, downloading again", dest)
		os.Remove(dest)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".partial-*")
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	f.logger.Printf("Fetching %s from %s", pin, art.URL)
	if err := f.copyArtifact(ctx, art.URL, tmp, pin); err != nil {
		tmp.Close()
		return "", &core.Error{Op: "fetch", Package: pin, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing download: %w", err)
	}

	if err := f.verify(tmpPath, art); err != nil {
		return "", &core.Error{Op: "verify", Package: pin, Err: err}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("moving download into cache: %w", err)
	}

	return dest, nil
}

// cachePath places an artifact at downloads/<name>/<version>/<file> so that
// no two releases share a cache entry.
func (f *Fetcher) cachePath(rel *core.Release, art *core.Artifact) (string, error) {
	segments := []string{rel.Name, rel.Version, ArtifactFileName(art.URL)}
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `/\`) {
			return "", fmt.Errorf("invalid cache path segment %q", segment)
		}
	}
	return filepath.Join(append([]string{f.config.CachePath, "downloads"}, segments...)...), nil
}

func (f *Fetcher) verify(path string, art *core.Artifact) error {
	if !f.config.VerifyHash {
		return nil
	}
	if art.Hash == "" {
		f.logger.Printf("⚠️  Warning: no checksum for %s, skipping verification", art.URL)
		return nil
	}
	return VerifyFile(path, art.Hash)
}

func (f *Fetcher) copyArtifact(ctx context.Context, raw string, w io.Writer, desc string) error {
	if local, ok := localPath(raw); ok {
		src, err := os.Open(local)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: artifact %s does not exist", core.ErrDependencyUnavailable, local)
			}
			return fmt.Errorf("opening artifact: %w", err)
		}
		defer src.Close()

		_, err = io.Copy(w, src)
		return err
	}

	resp, err := f.client.Get(ctx, raw)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return fmt.Errorf("%w: %v", core.ErrDependencyUnavailable, err)
		}
		return fmt.Errorf("downloading: %w", err)
	}
	defer resp.Body.Close()

	bar := f.progressBar(resp.ContentLength, desc)
	if _, err := io.Copy(io.MultiWriter(w, bar), resp.Body); err != nil {
		return fmt.Errorf("downloading: %w", err)
	}
	bar.Finish()

	return nil
}

func (f *Fetcher) progressBar(length int64, desc string) *progressbar.ProgressBar {
	if !f.config.Progress {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.NewOptions64(length,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}

// localPath reports whether raw names a file on disk rather than a remote URL
func localPath(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return raw, true
	}
	if u.Scheme == "file" {
		return filepath.FromSlash(u.Path), true
	}
	return "", false
}

// ArtifactFileName returns the file name an artifact URL or path ends in
func ArtifactFileName(raw string) string {
	if local, ok := localPath(raw); ok {
		return filepath.Base(local)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "artifact"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		return "artifact"
	}
	return name
}
