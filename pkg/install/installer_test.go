package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/st3fan/kickoff/internal/indextest"
	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/fetch"
	"github.com/st3fan/kickoff/pkg/manifest"
	"github.com/st3fan/kickoff/pkg/registry"
	"github.com/st3fan/kickoff/pkg/state"
)

type fixture struct {
	root      string
	store     *state.Store
	installer *Installer
}

func newFixture(t *testing.T, pkgs ...indextest.Package) *fixture {
	indexDir := t.TempDir()
	if len(pkgs) == 0 {
		pkgs = []indextest.Package{
			{Name: "httplib", Version: "1.2.0"},
			{Name: "httplib", Version: "1.3.0"},
			{Name: "dateutil", Version: "2.1"},
		}
	}
	indextest.Write(t, indexDir, pkgs...)

	store, err := state.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	root := t.TempDir()
	return &fixture{
		root:  root,
		store: store,
		installer: New(Config{
			Root:     root,
			Resolver: registry.New(indexDir),
			Fetcher:  fetch.New(&fetch.Config{CachePath: t.TempDir(), VerifyHash: true}),
			Store:    store,
		}),
	}
}

// project writes the given scripts into a fresh project directory
func project(t *testing.T, name string, deps []string, scripts ...string) *manifest.Manifest {
	dir := t.TempDir()
	m := &manifest.Manifest{Name: name, Version: "0.1.0", Dir: dir}
	for _, raw := range deps {
		dep, err := manifest.ParseRequirement(raw)
		require.NoError(t, err)
		m.Dependencies = append(m.Dependencies, dep)
	}
	for _, script := range scripts {
		path := filepath.Join(dir, filepath.FromSlash(script))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho "+name+"\n"), 0644))
		m.Scripts = append(m.Scripts, script)
	}
	return m
}

func (f *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{f.root}, parts...)...)
}

func TestInstallStatsTool(t *testing.T) {
	f := newFixture(t)
	m := project(t, "stats", []string{"httplib==1.2.0", "dateutil==2.1"}, "scripts/stats-tool")

	rec, err := f.installer.Install(context.Background(), m, Options{Jobs: 2})
	require.NoError(t, err)

	assert.DirExists(t, f.path("lib", "httplib", "1.2.0"))
	assert.FileExists(t, f.path("lib", "httplib", "1.2.0", "httplib", "__init__.py"))
	assert.DirExists(t, f.path("lib", "dateutil", "2.1"))
	assert.NoDirExists(t, f.path("lib", "httplib", "1.3.0"))

	info, err := os.Stat(f.path("bin", "stats-tool"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	assert.Equal(t, "stats", rec.Name)
	require.Len(t, rec.Dependencies, 2)
	assert.Equal(t, state.LibRef{Name: "httplib", Version: "1.2.0", Path: f.path("lib", "httplib", "1.2.0")}, rec.Dependencies[0])
	require.Len(t, rec.Scripts, 1)
	assert.Equal(t, "stats-tool", rec.Scripts[0].Name)
	assert.False(t, rec.InstalledAt.IsZero())

	stored, err := f.store.Get("stats")
	require.NoError(t, err)
	assert.Equal(t, rec.Version, stored.Version)

	owner, err := f.store.ScriptOwner("stats-tool")
	require.NoError(t, err)
	assert.Equal(t, "stats", owner)

	// staging is gone
	entries, err := os.ReadDir(f.path(".kickoff"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallMissingScriptInstallsNothing(t *testing.T) {
	f := newFixture(t)
	m := project(t, "stats", []string{"httplib==1.2.0", "dateutil==2.1"})
	m.Scripts = []string{"scripts/stats-tool"}

	_, err := f.installer.Install(context.Background(), m, Options{})
	require.ErrorIs(t, err, core.ErrScriptNotFound)
	assert.Contains(t, err.Error(), "scripts/stats-tool")

	assert.NoFileExists(t, f.path("bin", "stats-tool"))
	assert.NoDirExists(t, f.path("lib"))

	_, err = f.store.Get("stats")
	assert.ErrorIs(t, err, core.ErrNotInstalled)
}

func TestInstallUnavailableDependencies(t *testing.T) {
	f := newFixture(t)
	m := project(t, "stats", []string{"httplib==9.9", "nosuchlib==1.0", "dateutil==2.1"}, "scripts/stats-tool")

	_, err := f.installer.Install(context.Background(), m, Options{})
	require.ErrorIs(t, err, core.ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "httplib==9.9")
	assert.Contains(t, err.Error(), "nosuchlib==1.0")
	assert.NotContains(t, err.Error(), "dateutil==2.1")

	assert.NoDirExists(t, f.path("lib"))
	assert.NoFileExists(t, f.path("bin", "stats-tool"))
}

func TestInstallHashMismatch(t *testing.T) {
	f := newFixture(t,
		indextest.Package{Name: "httplib", Version: "1.2.0"},
		indextest.Package{Name: "dateutil", Version: "2.1", BadHash: true},
	)
	m := project(t, "stats", []string{"httplib==1.2.0", "dateutil==2.1"}, "scripts/stats-tool")

	_, err := f.installer.Install(context.Background(), m, Options{Jobs: 1})
	require.ErrorIs(t, err, core.ErrHashMismatch)
	assert.Contains(t, err.Error(), "dateutil==2.1")

	assert.NoDirExists(t, f.path("lib"))
	assert.NoFileExists(t, f.path("bin", "stats-tool"))
	list, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInstallRollsBackOnCommitFailure(t *testing.T) {
	f := newFixture(t)
	m := project(t, "stats", []string{"httplib==1.2.0", "dateutil==2.1"}, "scripts/stats-tool")

	// a file where lib/dateutil/ should go breaks the second move
	require.NoError(t, os.MkdirAll(f.path("lib"), 0755))
	require.NoError(t, os.WriteFile(f.path("lib", "dateutil"), []byte("in the way"), 0644))

	_, err := f.installer.Install(context.Background(), m, Options{})
	require.Error(t, err)

	assert.NoDirExists(t, f.path("lib", "httplib", "1.2.0"))
	assert.NoFileExists(t, f.path("bin", "stats-tool"))
	_, err = f.store.Get("stats")
	assert.ErrorIs(t, err, core.ErrNotInstalled)
}

func TestInstallDryRun(t *testing.T) {
	f := newFixture(t)
	m := project(t, "stats", []string{"httplib==1.2.0"}, "scripts/stats-tool")

	rec, err := f.installer.Install(context.Background(), m, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "stats", rec.Name)
	require.Len(t, rec.Dependencies, 1)
	assert.True(t, rec.InstalledAt.IsZero())

	assert.NoDirExists(t, f.path("lib"))
	assert.NoDirExists(t, f.path("bin"))
	assert.NoDirExists(t, f.path(".kickoff"))
}

func TestPlanMarksPresentLibraries(t *testing.T) {
	f := newFixture(t)
	first := project(t, "stats", []string{"httplib==1.2.0"}, "scripts/stats-tool")
	_, err := f.installer.Install(context.Background(), first, Options{})
	require.NoError(t, err)

	second := project(t, "report", []string{"httplib==1.2.0", "dateutil==2.1"}, "bin/report")
	plan, err := f.installer.Plan(context.Background(), second, Options{Platform: "linux/amd64"})
	require.NoError(t, err)
	assert.Equal(t, "linux/amd64", plan.Platform)
	require.Len(t, plan.Libraries, 2)
	assert.True(t, plan.Libraries[0].Present)
	assert.False(t, plan.Libraries[1].Present)
	require.Len(t, plan.Fetches(), 1)
	assert.Equal(t, "dateutil", plan.Fetches()[0].Dependency.Name)
}

func TestInstallAlreadyInstalled(t *testing.T) {
	f := newFixture(t)
	m := project(t, "stats", []string{"httplib==1.2.0"}, "scripts/stats-tool")
	_, err := f.installer.Install(context.Background(), m, Options{})
	require.NoError(t, err)

	_, err = f.installer.Install(context.Background(), m, Options{})
	require.ErrorIs(t, err, core.ErrAlreadyInstalled)
}

func TestForceReplacesPreviousInstall(t *testing.T) {
	f := newFixture(t)
	old := project(t, "stats", []string{"httplib==1.2.0"}, "scripts/stats-tool", "scripts/old-tool")
	_, err := f.installer.Install(context.Background(), old, Options{})
	require.NoError(t, err)

	updated := project(t, "stats", []string{"httplib==1.3.0", "dateutil==2.1"}, "scripts/stats-tool")
	rec, err := f.installer.Install(context.Background(), updated, Options{Force: true})
	require.NoError(t, err)
	require.Len(t, rec.Dependencies, 2)

	assert.DirExists(t, f.path("lib", "httplib", "1.3.0"))
	assert.NoDirExists(t, f.path("lib", "httplib", "1.2.0"))
	assert.FileExists(t, f.path("bin", "stats-tool"))
	assert.NoFileExists(t, f.path("bin", "old-tool"))

	owners, err := f.store.LibraryOwners("httplib", "1.2.0")
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func TestScriptConflict(t *testing.T) {
	f := newFixture(t)
	first := project(t, "stats", []string{"httplib==1.2.0"}, "scripts/tool")
	_, err := f.installer.Install(context.Background(), first, Options{})
	require.NoError(t, err)
	before, err := os.ReadFile(f.path("bin", "tool"))
	require.NoError(t, err)

	second := project(t, "report", []string{"dateutil==2.1"}, "bin/tool")
	_, err = f.installer.Install(context.Background(), second, Options{})
	require.ErrorIs(t, err, core.ErrScriptConflict)
	assert.Contains(t, err.Error(), "owned by stats")

	after, err := os.ReadFile(f.path("bin", "tool"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoDirExists(t, f.path("lib", "dateutil"))
	_, err = f.store.Get("report")
	assert.ErrorIs(t, err, core.ErrNotInstalled)

	// with force the entry point changes hands
	_, err = f.installer.Install(context.Background(), second, Options{Force: true})
	require.NoError(t, err)
	owner, err := f.store.ScriptOwner("tool")
	require.NoError(t, err)
	assert.Equal(t, "report", owner)

	// and survives uninstalling its previous owner
	_, err = f.installer.Uninstall(context.Background(), "stats")
	require.NoError(t, err)
	assert.FileExists(t, f.path("bin", "tool"))
}

func TestUnmanagedScriptConflict(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.path("bin"), 0755))
	require.NoError(t, os.WriteFile(f.path("bin", "stats-tool"), []byte("mine"), 0755))

	m := project(t, "stats", nil, "scripts/stats-tool")
	_, err := f.installer.Install(context.Background(), m, Options{})
	require.ErrorIs(t, err, core.ErrScriptConflict)

	data, err := os.ReadFile(f.path("bin", "stats-tool"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestUninstallKeepsSharedLibraries(t *testing.T) {
	f := newFixture(t)
	_, err := f.installer.Install(context.Background(),
		project(t, "stats", []string{"httplib==1.2.0", "dateutil==2.1"}, "scripts/stats-tool"), Options{})
	require.NoError(t, err)
	_, err = f.installer.Install(context.Background(),
		project(t, "report", []string{"httplib==1.2.0"}, "bin/report"), Options{})
	require.NoError(t, err)

	rec, err := f.installer.Uninstall(context.Background(), "stats")
	require.NoError(t, err)
	assert.Equal(t, "stats", rec.Name)

	assert.NoFileExists(t, f.path("bin", "stats-tool"))
	assert.NoDirExists(t, f.path("lib", "dateutil"))
	assert.DirExists(t, f.path("lib", "httplib", "1.2.0"))
	assert.FileExists(t, f.path("bin", "report"))

	_, err = f.installer.Uninstall(context.Background(), "report")
	require.NoError(t, err)
	assert.NoDirExists(t, f.path("lib", "httplib"))

	_, err = f.installer.Uninstall(context.Background(), "report")
	assert.ErrorIs(t, err, core.ErrNotInstalled)
}

func TestUninstallKeepsRecordWhenScriptRemovalFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.installer.Install(context.Background(),
		project(t, "stats", []string{"httplib==1.2.0"}, "scripts/stats-tool"), Options{})
	require.NoError(t, err)

	// a non-empty directory cannot be removed with os.Remove
	script := f.path("bin", "stats-tool")
	require.NoError(t, os.Remove(script))
	require.NoError(t, os.MkdirAll(filepath.Join(script, "busy"), 0755))

	_, err = f.installer.Uninstall(context.Background(), "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stats-tool")

	rec, err := f.store.Get("stats")
	require.NoError(t, err)
	assert.Equal(t, "stats", rec.Name)
	assert.DirExists(t, f.path("lib", "httplib", "1.2.0"))

	require.NoError(t, os.RemoveAll(script))
	_, err = f.installer.Uninstall(context.Background(), "stats")
	require.NoError(t, err)
	assert.NoDirExists(t, f.path("lib", "httplib"))
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	_, err := f.installer.Install(context.Background(),
		project(t, "stats", []string{"httplib==1.2.0"}, "scripts/stats-tool"), Options{})
	require.NoError(t, err)

	problems, err := f.installer.Verify(context.Background(), "stats")
	require.NoError(t, err)
	assert.Empty(t, problems)

	require.NoError(t, os.Remove(f.path("bin", "stats-tool")))
	require.NoError(t, os.RemoveAll(f.path("lib", "httplib", "1.2.0")))

	problems, err = f.installer.Verify(context.Background(), "stats")
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], "httplib==1.2.0")
	assert.Contains(t, problems[1], "stats-tool")

	_, err = f.installer.Verify(context.Background(), "nothing")
	assert.ErrorIs(t, err, core.ErrNotInstalled)
}
