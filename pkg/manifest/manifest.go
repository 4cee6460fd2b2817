// pkg/manifest/manifest.go
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/st3fan/kickoff/pkg/core"
)

// Load reads and validates a manifest file. A directory argument means the
// kickoff.toml inside it.
func Load(path string) (*Manifest, error) {
	if path == "" {
		path = "."
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidManifest, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, DefaultFile)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidManifest, err)
	}

	format, err := FormatFromPath(abs)
	if err != nil {
		return nil, err
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	m.Dir = filepath.Dir(abs)

	return m, nil
}

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported manifest format %q", core.ErrInvalidManifest, filepath.Ext(path))
	}
}

// Parse decodes and validates a manifest. The returned manifest has no Dir;
// callers resolving scripts must set it.
func Parse(data []byte, format Format) (*Manifest, error) {
	var f file
	var err error

	switch format {
	case FormatTOML:
		_, err = toml.Decode(string(data), &f)
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	case FormatJSON:
		err = json.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: unsupported manifest format %q", core.ErrInvalidManifest, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", core.ErrInvalidManifest, format, err)
	}

	m := &Manifest{
		Name:        strings.TrimSpace(f.Name),
		Version:     strings.TrimSpace(f.Version),
		Description: f.Description,
		URL:         f.URL,
		Author:      f.Author,
		AuthorEmail: f.AuthorEmail,
		Scripts:     f.Scripts,
	}

	for _, raw := range f.Dependencies {
		dep, err := ParseRequirement(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: dependency %q: %w", core.ErrInvalidManifest, raw, err)
		}
		m.Dependencies = append(m.Dependencies, dep)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks the invariants installation relies on
func (m *Manifest) Validate() error {
	var errs []error

	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if !namePattern.MatchString(m.Name) {
		errs = append(errs, fmt.Errorf("invalid name %q", m.Name))
	}

	if m.Version == "" {
		errs = append(errs, errors.New("version is required"))
	} else if _, err := semver.NewVersion(m.Version); err != nil {
		errs = append(errs, fmt.Errorf("invalid version %q: %v", m.Version, err))
	}

	seen := make(map[string]bool)
	for _, dep := range m.Dependencies {
		key := CanonicalName(dep.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("dependency %s declared more than once", dep.Name))
		}
		seen[key] = true
	}

	entries := make(map[string]string)
	for _, script := range m.Scripts {
		if strings.TrimSpace(script) == "" {
			errs = append(errs, errors.New("empty script path"))
			continue
		}
		if filepath.IsAbs(script) {
			errs = append(errs, fmt.Errorf("script %s must be relative to the manifest", script))
			continue
		}
		clean := filepath.Clean(filepath.FromSlash(script))
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			errs = append(errs, fmt.Errorf("script %s escapes the project directory", script))
			continue
		}
		entry := filepath.Base(clean)
		if prev, ok := entries[entry]; ok {
			errs = append(errs, fmt.Errorf("scripts %s and %s both install as %s", prev, script, entry))
			continue
		}
		entries[entry] = script
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", core.ErrInvalidManifest, errors.Join(errs...))
	}

	return nil
}

// Metadata returns the descriptive attributes of the manifest
func (m *Manifest) Metadata() Metadata {
	return Metadata{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		URL:         m.URL,
		Author:      m.Author,
		AuthorEmail: m.AuthorEmail,
	}
}

// ScriptPaths returns the absolute path of every declared script
func (m *Manifest) ScriptPaths() []string {
	paths := make([]string, 0, len(m.Scripts))
	for _, script := range m.Scripts {
		paths = append(paths, filepath.Join(m.Dir, filepath.FromSlash(script)))
	}
	return paths
}

// EntryPoints returns the names scripts are exposed under on the execution path
func (m *Manifest) EntryPoints() []string {
	names := make([]string, 0, len(m.Scripts))
	for _, script := range m.Scripts {
		names = append(names, filepath.Base(filepath.FromSlash(script)))
	}
	return names
}
