package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/manifest"
	"github.com/st3fan/kickoff/pkg/platform"
	"github.com/st3fan/kickoff/pkg/state"
)

// Library is one resolved dependency of a plan
type Library struct {
	Dependency manifest.Dependency
	Release    *core.Release
	Artifact   *core.Artifact
	Path       string // <root>/lib/<name>/<version>
	Present    bool   // already on disk, nothing to fetch
}

// Plan is everything an installation will do, computed before any write
type Plan struct {
	Manifest  *manifest.Manifest
	Platform  string
	Libraries []Library
	Scripts   []state.ScriptRef
	Replaces  *state.Record // previous install replaced under Force
}

// Record returns the state record the plan installs
func (p *Plan) Record() *state.Record {
	m := p.Manifest
	rec := &state.Record{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		URL:         m.URL,
		Author:      m.Author,
		AuthorEmail: m.AuthorEmail,
	}
	for _, lib := range p.Libraries {
		rec.Dependencies = append(rec.Dependencies, state.LibRef{
			Name:    lib.Dependency.Name,
			Version: lib.Dependency.Version,
			Path:    lib.Path,
		})
	}
	rec.Scripts = append(rec.Scripts, p.Scripts...)
	return rec
}

// Fetches returns the libraries that have to be downloaded
func (p *Plan) Fetches() []Library {
	var libs []Library
	for _, lib := range p.Libraries {
		if !lib.Present {
			libs = append(libs, lib)
		}
	}
	return libs
}

// Plan validates m, checks its scripts and resolves every dependency.
// Nothing is written.
func (i *Installer) Plan(ctx context.Context, m *manifest.Manifest, opts Options) (*Plan, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	// scripts first: a missing script must fail before anything else happens
	var missing []error
	scripts := make([]state.ScriptRef, 0, len(m.Scripts))
	for idx, path := range m.ScriptPaths() {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			missing = append(missing, fmt.Errorf("%w: %s", core.ErrScriptNotFound, m.Scripts[idx]))
			continue
		}
		entry := filepath.Base(path)
		scripts = append(scripts, state.ScriptRef{
			Name:   entry,
			Source: path,
			Path:   filepath.Join(i.BinDir(), entry),
		})
	}
	if len(missing) > 0 {
		return nil, &core.Error{Op: "install", Package: m.Name, Err: errors.Join(missing...)}
	}

	var replaces *state.Record
	existing, err := i.store.Get(m.Name)
	switch {
	case err == nil:
		if !opts.Force {
			return nil, &core.Error{
				Op:      "install",
				Package: m.Name,
				Err:     fmt.Errorf("%w: version %s (use --force to replace it)", core.ErrAlreadyInstalled, existing.Version),
			}
		}
		replaces = existing
	case !errors.Is(err, core.ErrNotInstalled):
		return nil, err
	}

	plat := opts.Platform
	if plat == "" {
		plat = platform.Detect().String()
	}

	plan := &Plan{
		Manifest: m,
		Platform: plat,
		Scripts:  scripts,
		Replaces: replaces,
	}

	var unresolved []error
	for _, dep := range m.Dependencies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rel, err := i.resolver.Lookup(ctx, dep.Name, dep.Version)
		if err != nil {
			unresolved = append(unresolved, err)
			continue
		}
		if rel.Name == "" {
			rel.Name = dep.Name
		}

		art, err := rel.Artifact(plat)
		if err != nil {
			unresolved = append(unresolved, err)
			continue
		}

		path := i.LibraryPath(dep.Name, dep.Version)
		_, statErr := os.Stat(path)

		plan.Libraries = append(plan.Libraries, Library{
			Dependency: dep,
			Release:    rel,
			Artifact:   art,
			Path:       path,
			Present:    statErr == nil,
		})
	}
	if len(unresolved) > 0 {
		return nil, fmt.Errorf("resolving dependencies of %s against %s: %w",
			m.Name, i.resolver.Name(), errors.Join(unresolved...))
	}

	return plan, nil
}
