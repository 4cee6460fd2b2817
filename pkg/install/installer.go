// Package install performs all-or-nothing installation of a manifest: every
// dependency is resolved and fetched before the first file is moved into the
// install root, and a failed commit is rolled back.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/st3fan/kickoff/pkg/archive"
	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/fetch"
	"github.com/st3fan/kickoff/pkg/manifest"
	"github.com/st3fan/kickoff/pkg/state"
)

// Options control a single installation
type Options struct {
	Force    bool   // replace an existing install and take over conflicting scripts
	DryRun   bool   // resolve only; nothing is fetched or written
	Jobs     int    // parallel downloads
	Platform string // artifact platform, detected when empty
}

// Config wires an Installer
type Config struct {
	Root      string // install root holding bin/, lib/ and .kickoff/
	Resolver  core.Resolver
	Fetcher   *fetch.Fetcher
	Extractor *archive.Extractor
	Store     *state.Store
	Logger    *log.Logger
}

// Installer installs manifests into an install root
type Installer struct {
	root      string
	resolver  core.Resolver
	fetcher   *fetch.Fetcher
	extractor *archive.Extractor
	store     *state.Store
	logger    *log.Logger
}

// New creates an Installer
func New(cfg Config) *Installer {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(&fetch.Config{
			CachePath:  filepath.Join(cfg.Root, ".kickoff", "cache"),
			VerifyHash: true,
			Logger:     logger,
		})
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = archive.New(logger)
	}

	return &Installer{
		root:      cfg.Root,
		resolver:  cfg.Resolver,
		fetcher:   fetcher,
		extractor: extractor,
		store:     cfg.Store,
		logger:    logger,
	}
}

// BinDir is where entry points are installed
func (i *Installer) BinDir() string {
	return filepath.Join(i.root, "bin")
}

// LibDir holds one directory per library and version
func (i *Installer) LibDir() string {
	return filepath.Join(i.root, "lib")
}

// LibraryPath returns <root>/lib/<name>/<version>
func (i *Installer) LibraryPath(name, version string) string {
	return filepath.Join(i.LibDir(), manifest.CanonicalName(name), version)
}

// Install installs m. Either every library, every script and the state
// record end up in place or none of them do. With DryRun the record that
// would be written is returned and nothing is touched.
func (i *Installer) Install(ctx context.Context, m *manifest.Manifest, opts Options) (*state.Record, error) {
	plan, err := i.Plan(ctx, m, opts)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return plan.Record(), nil
	}

	downloads, err := i.fetchAll(ctx, plan, opts.Jobs)
	if err != nil {
		return nil, err
	}

	metaDir := filepath.Join(i.root, ".kickoff")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", metaDir, err)
	}
	staging, err := os.MkdirTemp(metaDir, "staging-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := i.stage(plan, downloads, staging); err != nil {
		return nil, &core.Error{Op: "install", Package: m.Name, Err: err}
	}

	rec := plan.Record()
	rec.InstalledAt = time.Now().UTC()

	if err := i.commit(plan, rec, staging, opts.Force); err != nil {
		return nil, &core.Error{Op: "install", Package: m.Name, Err: err}
	}

	if plan.Replaces != nil {
		i.cleanup(plan.Replaces)
	}

	i.logger.Printf("✓ Installed %s %s (%d libraries, %d scripts)",
		rec.Name, rec.Version, len(rec.Dependencies), len(rec.Scripts))
	return rec, nil
}

// fetchAll downloads every missing library artifact, Jobs at a time. The
// first failure cancels the remaining downloads.
func (i *Installer) fetchAll(ctx context.Context, plan *Plan, jobs int) (map[string]string, error) {
	if jobs <= 0 {
		jobs = 1
	}

	libs := plan.Fetches()
	paths := make([]string, len(libs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for idx := range libs {
		idx := idx
		lib := libs[idx]
		g.Go(func() error {
			path, err := i.fetcher.Fetch(gctx, lib.Release, lib.Artifact)
			if err != nil {
				return err
			}
			paths[idx] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	downloads := make(map[string]string, len(libs))
	for idx, lib := range libs {
		downloads[lib.Path] = paths[idx]
	}
	return downloads, nil
}

// stage lays out the new files under staging/lib and staging/bin
func (i *Installer) stage(plan *Plan, downloads map[string]string, staging string) error {
	for _, lib := range plan.Fetches() {
		rel, err := filepath.Rel(i.root, lib.Path)
		if err != nil {
			return err
		}
		dest := filepath.Join(staging, rel)
		name := fetch.ArtifactFileName(lib.Artifact.URL)
		if err := i.extractor.Extract(downloads[lib.Path], name, dest); err != nil {
			return fmt.Errorf("unpacking %s: %w", lib.Dependency, err)
		}
	}

	binDir := filepath.Join(staging, "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return err
	}
	for _, script := range plan.Scripts {
		if err := copyExecutable(script.Source, filepath.Join(binDir, script.Name)); err != nil {
			return fmt.Errorf("staging script %s: %w", script.Name, err)
		}
	}

	return nil
}

// commit moves staged files into the root and writes the record. Every move
// is journaled so a failure restores the previous layout.
func (i *Installer) commit(plan *Plan, rec *state.Record, staging string, force bool) error {
	if err := i.checkConflicts(plan, force); err != nil {
		return err
	}

	var j journal
	fail := func(err error) error {
		if rbErr := j.rollback(); rbErr != nil {
			i.logger.Printf("⚠️  Rollback incomplete: %v", rbErr)
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	for _, lib := range plan.Fetches() {
		rel, err := filepath.Rel(i.root, lib.Path)
		if err != nil {
			return fail(err)
		}
		if _, err := os.Stat(lib.Path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(lib.Path), 0755); err != nil {
			return fail(err)
		}
		if err := os.Rename(filepath.Join(staging, rel), lib.Path); err != nil {
			return fail(fmt.Errorf("installing %s: %w", lib.Dependency, err))
		}
		target := lib.Path
		j.add(func() error { return os.RemoveAll(target) })
	}

	if err := os.MkdirAll(i.BinDir(), 0755); err != nil {
		return fail(err)
	}
	backups := filepath.Join(staging, "backup")
	if err := os.MkdirAll(backups, 0755); err != nil {
		return fail(err)
	}
	for _, script := range plan.Scripts {
		target := script.Path
		if _, err := os.Lstat(target); err == nil {
			backup := filepath.Join(backups, script.Name)
			if err := os.Rename(target, backup); err != nil {
				return fail(fmt.Errorf("moving aside %s: %w", target, err))
			}
			j.add(func() error { return os.Rename(backup, target) })
		}
		if err := os.Rename(filepath.Join(staging, "bin", script.Name), target); err != nil {
			return fail(fmt.Errorf("installing script %s: %w", script.Name, err))
		}
		j.add(func() error { return os.Remove(target) })
	}

	if err := i.store.Commit(rec, plan.Replaces); err != nil {
		return fail(fmt.Errorf("recording installation: %w", err))
	}

	return nil
}

// checkConflicts refuses entry points owned by another package, or present
// on disk without an owner, unless force is set.
func (i *Installer) checkConflicts(plan *Plan, force bool) error {
	self := manifest.CanonicalName(plan.Manifest.Name)

	var conflicts []error
	for _, script := range plan.Scripts {
		owner, err := i.store.ScriptOwner(script.Name)
		if err != nil {
			return err
		}
		switch {
		case owner != "" && manifest.CanonicalName(owner) != self:
			conflicts = append(conflicts, fmt.Errorf("%w: %s is owned by %s", core.ErrScriptConflict, script.Name, owner))
		case owner == "":
			if _, err := os.Lstat(script.Path); err == nil {
				conflicts = append(conflicts, fmt.Errorf("%w: %s exists and is not managed by kickoff", core.ErrScriptConflict, script.Path))
			}
		}
	}

	if len(conflicts) == 0 {
		return nil
	}
	if force {
		for _, err := range conflicts {
			i.logger.Printf("Overwriting: %v", err)
		}
		return nil
	}
	return errors.Join(conflicts...)
}

// cleanup removes what a replaced install left behind: scripts nobody owns
// anymore and libraries nobody references.
func (i *Installer) cleanup(old *state.Record) {
	for _, script := range old.Scripts {
		owner, err := i.store.ScriptOwner(script.Name)
		if err != nil || owner != "" {
			continue
		}
		if err := os.Remove(script.Path); err != nil && !os.IsNotExist(err) {
			i.logger.Printf("Removing %s: %v", script.Path, err)
		}
	}
	i.pruneLibraries(old.Dependencies)
}

func (i *Installer) pruneLibraries(libs []state.LibRef) {
	for _, lib := range libs {
		owners, err := i.store.LibraryOwners(lib.Name, lib.Version)
		if err != nil || len(owners) > 0 {
			continue
		}
		if err := os.RemoveAll(lib.Path); err != nil {
			i.logger.Printf("Removing %s: %v", lib.Path, err)
			continue
		}
		// drop lib/<name> once its last version is gone
		os.Remove(filepath.Dir(lib.Path))
	}
}

// Uninstall removes an installed package, its scripts and every library no
// other installed package still references.
func (i *Installer) Uninstall(ctx context.Context, name string) (*state.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := i.store.Get(name)
	if err != nil {
		return nil, err
	}

	// scripts go first; a failure leaves the record in place for a retry
	for _, script := range rec.Scripts {
		owner, err := i.store.ScriptOwner(script.Name)
		if err != nil {
			return nil, err
		}
		if owner != "" && owner != rec.Name {
			i.logger.Printf("Keeping %s, now owned by %s", script.Name, owner)
			continue
		}
		if err := os.Remove(script.Path); err != nil && !os.IsNotExist(err) {
			return nil, &core.Error{Op: "uninstall", Package: rec.Name, Err: fmt.Errorf("removing %s: %w", script.Path, err)}
		}
	}

	if _, err := i.store.Delete(name); err != nil {
		return nil, err
	}

	i.pruneLibraries(rec.Dependencies)

	i.logger.Printf("✓ Uninstalled %s %s", rec.Name, rec.Version)
	return rec, nil
}

// Verify returns one problem per library directory or script of an
// installed package that is missing from disk.
func (i *Installer) Verify(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := i.store.Get(name)
	if err != nil {
		return nil, err
	}

	var problems []string
	for _, lib := range rec.Dependencies {
		info, err := os.Stat(lib.Path)
		if err != nil || !info.IsDir() {
			problems = append(problems, fmt.Sprintf("library %s==%s missing at %s", lib.Name, lib.Version, lib.Path))
		}
	}
	for _, script := range rec.Scripts {
		info, err := os.Stat(script.Path)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("script %s missing at %s", script.Name, script.Path))
		case info.Mode()&0111 == 0:
			problems = append(problems, fmt.Sprintf("script %s is not executable", script.Path))
		}
	}

	return problems, nil
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// umask may have dropped bits
	return os.Chmod(dst, 0755)
}

type journal struct {
	undo []func() error
}

func (j *journal) add(f func() error) {
	j.undo = append(j.undo, f)
}

func (j *journal) rollback() error {
	var errs []error
	for idx := len(j.undo) - 1; idx >= 0; idx-- {
		if err := j.undo[idx](); err != nil {
			errs = append(errs, err)
		}
	}
	j.undo = nil
	return errors.Join(errs...)
}
