package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/st3fan/kickoff/internal/indextest"
	"github.com/st3fan/kickoff/pkg/core"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	dir := t.TempDir()
	indextest.Write(t, dir,
		indextest.Package{Name: "httplib", Version: "1.2.0"},
		indextest.Package{Name: "httplib", Version: "1.10.0"},
		indextest.Package{Name: "httplib", Version: "1.9.1"},
		indextest.Package{Name: "python-dateutil", Version: "2.1"},
	)
	return New(dir), dir
}

func TestLookupExactVersion(t *testing.T) {
	reg, dir := newTestRegistry(t)

	rel, err := reg.Lookup(context.Background(), "httplib", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "httplib", rel.Name)
	assert.Equal(t, "1.2.0", rel.Version)
	require.Len(t, rel.Artifacts, 1)
	assert.Equal(t, filepath.Join(dir, "packages", "httplib", "httplib-1.2.0.tar.gz"), rel.Artifacts[0].URL)
	assert.FileExists(t, rel.Artifacts[0].URL)
}

func TestLookupCanonicalName(t *testing.T) {
	reg, _ := newTestRegistry(t)

	rel, err := reg.Lookup(context.Background(), "Python_Dateutil", "2.1")
	require.NoError(t, err)
	assert.Equal(t, "python-dateutil", rel.Name)
}

func TestLookupMissingVersionNamesPin(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Lookup(context.Background(), "httplib", "1.2")
	require.ErrorIs(t, err, core.ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "httplib==1.2")
	assert.Contains(t, err.Error(), "available: 1.2.0, 1.9.1, 1.10.0")

	var kerr *core.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "resolve", kerr.Op)
}

func TestLookupUnknownPackage(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Lookup(context.Background(), "left-pad", "1.0.0")
	require.ErrorIs(t, err, core.ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "left-pad==1.0.0")

	_, err = reg.Lookup(context.Background(), "../etc", "1.0.0")
	require.ErrorIs(t, err, core.ErrDependencyUnavailable)
}

func TestLookupWithoutIndex(t *testing.T) {
	reg := New(t.TempDir())

	_, err := reg.Lookup(context.Background(), "httplib", "1.2.0")
	require.ErrorIs(t, err, core.ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "run sync first")
}

func TestLoadMissingEntryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "packages", "broken"), 0755))

	_, err := New(dir).Load("broken")
	require.ErrorIs(t, err, core.ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "missing index.toml")
}

func TestNames(t *testing.T) {
	reg, _ := newTestRegistry(t)

	names, err := reg.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"httplib", "python-dateutil"}, names)

	empty, err := New(t.TempDir()).Names()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSortVersions(t *testing.T) {
	versions := []string{"2.1", "1.10.0", "weird", "1.2.0", "1.9"}
	SortVersions(versions)
	assert.Equal(t, []string{"1.2.0", "1.9", "1.10.0", "2.1", "weird"}, versions)
}

func TestResolveArtifactURL(t *testing.T) {
	assert.Equal(t, "https://files.example.com/a.tar.gz", resolveArtifactURL("/idx/a", "https://files.example.com/a.tar.gz"))
	assert.Equal(t, filepath.Join("/idx/a", "sub", "a.tar.gz"), resolveArtifactURL("/idx/a", "sub/a.tar.gz"))
}
