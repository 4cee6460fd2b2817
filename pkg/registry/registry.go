package registry

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/manifest"
)

// EntryFile is the file describing one package inside the index
const EntryFile = "index.toml"

// Entry represents a single packages/<name>/index.toml file
type Entry struct {
	Name     string         `toml:"name" json:"name"`
	Summary  string         `toml:"summary" json:"summary,omitempty"`
	Releases []core.Release `toml:"releases" json:"releases"`
}

// Versions returns the versions of all releases, oldest first
func (e *Entry) Versions() []string {
	versions := make([]string, 0, len(e.Releases))
	for _, rel := range e.Releases {
		versions = append(versions, rel.Version)
	}
	SortVersions(versions)
	return versions
}

// Release returns the release with exactly the given version
func (e *Entry) Release(version string) (*core.Release, bool) {
	for i := range e.Releases {
		if e.Releases[i].Version == version {
			rel := e.Releases[i]
			rel.Name = e.Name
			rel.Artifacts = append([]core.Artifact(nil), rel.Artifacts...)
			return &rel, true
		}
	}
	return nil, false
}

// Registry provides lookup into an index directory
type Registry struct {
	dir string
}

// New creates a Registry rooted at an index directory containing packages/
func New(dir string) *Registry {
	return &Registry{dir: dir}
}

// Name returns the index directory
func (r *Registry) Name() string {
	return r.dir
}

// PackagesDir returns the directory holding one folder per package
func (r *Registry) PackagesDir() string {
	return filepath.Join(r.dir, "packages")
}

// Lookup returns the release of name at exactly version. Artifact paths
// relative to the entry are made absolute.
func (r *Registry) Lookup(ctx context.Context, name, version string) (*core.Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pin := name + "==" + version

	entry, err := r.Load(name)
	if err != nil {
		return nil, &core.Error{Op: "resolve", Package: pin, Err: err}
	}

	rel, ok := entry.Release(version)
	if !ok {
		return nil, &core.Error{
			Op:      "resolve",
			Package: pin,
			Err: fmt.Errorf("%w: no release %s of %s (available: %s)",
				core.ErrDependencyUnavailable, version, entry.Name, strings.Join(entry.Versions(), ", ")),
		}
	}

	entryDir, err := r.EntryDir(name)
	if err != nil {
		return nil, &core.Error{Op: "resolve", Package: pin, Err: err}
	}
	for i := range rel.Artifacts {
		rel.Artifacts[i].URL = resolveArtifactURL(entryDir, rel.Artifacts[i].URL)
	}

	return rel, nil
}

// EntryDir returns the directory of a package, trying the name as given
// first and its canonical form second.
func (r *Registry) EntryDir(name string) (string, error) {
	if _, err := os.Stat(r.PackagesDir()); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: index %s has no packages directory, run sync first", core.ErrDependencyUnavailable, r.dir)
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid package name %q", core.ErrDependencyUnavailable, name)
	}

	for _, candidate := range []string{name, manifest.CanonicalName(name)} {
		dir := filepath.Join(r.PackagesDir(), candidate)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}

	return "", fmt.Errorf("%w: package %s not found in %s", core.ErrDependencyUnavailable, name, r.dir)
}

// Load reads and parses packages/<name>/index.toml.
func (r *Registry) Load(name string) (*Entry, error) {
	dir, err := r.EntryDir(name)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, EntryFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: found package %s directory, but missing %s", core.ErrDependencyUnavailable, name, EntryFile)
	}

	var entry Entry
	if _, err := toml.Decode(string(data), &entry); err != nil {
		return nil, fmt.Errorf("registry: failed to parse '%s': %w", path, err)
	}
	if entry.Name == "" {
		entry.Name = filepath.Base(dir)
	}

	return &entry, nil
}

// Names lists every package in the index
func (r *Registry) Names() ([]string, error) {
	entries, err := os.ReadDir(r.PackagesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.PackagesDir(), e.Name(), EntryFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// SortVersions orders versions by semantic version; anything that does not
// parse sorts after, lexically.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, errI := semver.NewVersion(versions[i])
		vj, errJ := semver.NewVersion(versions[j])
		switch {
		case errI == nil && errJ == nil:
			return vi.LessThan(vj)
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return versions[i] < versions[j]
		}
	})
}

func resolveArtifactURL(entryDir, raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return raw
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(entryDir, filepath.FromSlash(raw))
}
