package kickoff

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/st3fan/kickoff/internal/indextest"
	"github.com/st3fan/kickoff/pkg/env"
	"github.com/st3fan/kickoff/pkg/index"
	"github.com/st3fan/kickoff/pkg/registry"
)

const statsManifest = `
name         = "moz-kickoff-stats"
version      = "0.1"
description  = "Mozilla Project Kickoff Stats"
author       = "Mozilla"
dependencies = ["httplib==1.2.0", "python-dateutil==2.1"]
scripts      = ["scripts/stats-tool"]
`

func writeIndex(t *testing.T) string {
	dir := t.TempDir()
	indextest.Write(t, dir,
		indextest.Package{Name: "httplib", Version: "1.2.0"},
		indextest.Package{Name: "python-dateutil", Version: "2.1"},
	)
	return dir
}

func writeProject(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kickoff.toml"), []byte(statsManifest), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "stats-tool"), []byte("#!/bin/sh\n"), 0644))
	return dir
}

func newManager(t *testing.T, idx string) *Manager {
	m, err := NewManager(&Config{
		Root:      t.TempDir(),
		CachePath: t.TempDir(),
		Index:     idx,
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	indexDir := writeIndex(t)
	m := newManager(t, indexDir)
	project := writeProject(t)

	assert.Equal(t, indexDir, m.Index())

	mf, err := m.Info(project)
	require.NoError(t, err)
	assert.Equal(t, "moz-kickoff-stats", mf.Name)

	plan, err := m.Plan(ctx, project, InstallOptions{})
	require.NoError(t, err)
	assert.Len(t, plan.Fetches(), 2)

	rec, err := m.Install(ctx, project, InstallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0.1", rec.Version)

	root := m.Env().Root
	assert.DirExists(t, filepath.Join(root, "lib", "httplib", "1.2.0"))
	assert.DirExists(t, filepath.Join(root, "lib", "python-dateutil", "2.1"))
	assert.FileExists(t, filepath.Join(root, "bin", "stats-tool"))

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)

	installed, err := m.Installed("moz_kickoff_stats")
	require.NoError(t, err)
	assert.Equal(t, "moz-kickoff-stats", installed.Name)

	problems, err := m.Verify(ctx, "moz-kickoff-stats")
	require.NoError(t, err)
	assert.Empty(t, problems)

	script, err := m.EnvScript(env.ShellBash)
	require.NoError(t, err)
	assert.Contains(t, script, filepath.Join(root, "bin"))
	assert.Contains(t, script, filepath.Join(root, "lib", "httplib", "1.2.0"))

	_, err = m.Install(ctx, project, InstallOptions{})
	assert.ErrorIs(t, err, ErrAlreadyInstalled)

	_, err = m.Uninstall(ctx, "moz-kickoff-stats")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "bin", "stats-tool"))
	assert.NoDirExists(t, filepath.Join(root, "lib", "httplib"))

	_, err = m.Installed("moz-kickoff-stats")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestManagerInstallFromIndexServer(t *testing.T) {
	srv := httptest.NewServer(index.NewServer(registry.New(writeIndex(t)), nil).Handler())
	defer srv.Close()

	m := newManager(t, srv.URL)
	assert.Equal(t, srv.URL, m.Index())

	rec, err := m.Install(context.Background(), writeProject(t), InstallOptions{Jobs: 2})
	require.NoError(t, err)
	require.Len(t, rec.Dependencies, 2)
	assert.DirExists(t, rec.Dependencies[0].Path)
}

func TestManagerUnavailableDependency(t *testing.T) {
	indexDir := t.TempDir()
	indextest.Write(t, indexDir, indextest.Package{Name: "httplib", Version: "1.2.0"})
	m := newManager(t, indexDir)

	_, err := m.Install(context.Background(), writeProject(t), InstallOptions{})
	require.ErrorIs(t, err, ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "python-dateutil==2.1")

	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestManagerStatePersists(t *testing.T) {
	indexDir := writeIndex(t)
	cfg := &Config{Root: t.TempDir(), CachePath: t.TempDir(), Index: indexDir}

	m, err := NewManager(cfg)
	require.NoError(t, err)
	_, err = m.Install(context.Background(), writeProject(t), InstallOptions{})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m, err = NewManager(cfg)
	require.NoError(t, err)
	defer m.Close()

	rec, err := m.Installed("moz-kickoff-stats")
	require.NoError(t, err)
	assert.Equal(t, "0.1", rec.Version)
}
