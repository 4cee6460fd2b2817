// Package indextest builds throwaway package indexes for tests.
package indextest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/st3fan/kickoff/pkg/core"
)

// Package is one release to publish into a test index
type Package struct {
	Name     string
	Version  string
	Platform string            // defaults to "any"
	Files    map[string]string // archive contents, path -> body
	BadHash  bool              // publish a wrong checksum
}

type entry struct {
	Name     string         `toml:"name"`
	Releases []core.Release `toml:"releases"`
}

// Write publishes pkgs into dir/packages/<name>/ as .tar.gz artifacts with
// an index.toml next to them.
func Write(t testing.TB, dir string, pkgs ...Package) {
	t.Helper()

	entries := make(map[string]*entry)
	for _, p := range pkgs {
		pkgDir := filepath.Join(dir, "packages", p.Name)
		if err := os.MkdirAll(pkgDir, 0755); err != nil {
			t.Fatalf("creating %s: %v", pkgDir, err)
		}

		files := p.Files
		if files == nil {
			files = map[string]string{
				p.Name + "/__init__.py": fmt.Sprintf("__version__ = %q\n", p.Version),
			}
		}
		data := TarGz(t, files)

		plat := p.Platform
		if plat == "" {
			plat = "any"
		}
		file := fmt.Sprintf("%s-%s.tar.gz", p.Name, p.Version)
		if plat != "any" {
			file = fmt.Sprintf("%s-%s-%s.tar.gz", p.Name, p.Version, filepath.Base(plat))
		}
		if err := os.WriteFile(filepath.Join(pkgDir, file), data, 0644); err != nil {
			t.Fatalf("writing artifact: %v", err)
		}

		hash := SHA256(data)
		if p.BadHash {
			hash = SHA256([]byte("something else"))
		}

		e, ok := entries[p.Name]
		if !ok {
			e = &entry{Name: p.Name}
			entries[p.Name] = e
		}

		artifact := core.Artifact{Platform: plat, URL: file, Hash: hash}
		found := false
		for i := range e.Releases {
			if e.Releases[i].Version == p.Version {
				e.Releases[i].Artifacts = append(e.Releases[i].Artifacts, artifact)
				found = true
			}
		}
		if !found {
			e.Releases = append(e.Releases, core.Release{Version: p.Version, Artifacts: []core.Artifact{artifact}})
		}
	}

	for name, e := range entries {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(e); err != nil {
			t.Fatalf("encoding index for %s: %v", name, err)
		}
		path := filepath.Join(dir, "packages", name, "index.toml")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
}

// TarGz builds a gzip-compressed tarball from path -> body pairs
func TarGz(t testing.TB, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		body := files[name]
		hdr := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("writing tar body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}

	return buf.Bytes()
}

// SHA256 returns the hex digest of data
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
