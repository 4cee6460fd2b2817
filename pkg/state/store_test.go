package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/st3fan/kickoff/pkg/core"
)

func openTestStore(t *testing.T) *Store {
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func statsRecord(version string) *Record {
	return &Record{
		Name:    "stats",
		Version: version,
		Author:  "Mozilla",
		Dependencies: []LibRef{
			{Name: "httplib", Version: "1.2.0", Path: "/root/lib/httplib/1.2.0"},
			{Name: "dateutil", Version: "2.1", Path: "/root/lib/dateutil/2.1"},
		},
		Scripts: []ScriptRef{
			{Name: "stats-tool", Source: "scripts/stats-tool", Path: "/root/bin/stats-tool"},
		},
		InstalledAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

func TestCommitAndGet(t *testing.T) {
	s := openTestStore(t)

	rec := statsRecord("0.1")
	require.NoError(t, s.Commit(rec, nil))

	got, err := s.Get("stats")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	owners, err := s.LibraryOwners("httplib", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"stats"}, owners)

	owner, err := s.ScriptOwner("stats-tool")
	require.NoError(t, err)
	assert.Equal(t, "stats", owner)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("stats")
	require.ErrorIs(t, err, core.ErrNotInstalled)
}

func TestSharedLibraryReferences(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Commit(statsRecord("0.1"), nil))
	require.NoError(t, s.Commit(&Record{
		Name:         "report",
		Version:      "1.0",
		Dependencies: []LibRef{{Name: "httplib", Version: "1.2.0"}},
	}, nil))

	owners, err := s.LibraryOwners("httplib", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"report", "stats"}, owners)

	removed, err := s.Delete("stats")
	require.NoError(t, err)
	assert.Equal(t, "0.1", removed.Version)

	owners, err = s.LibraryOwners("httplib", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"report"}, owners)

	owners, err = s.LibraryOwners("dateutil", "2.1")
	require.NoError(t, err)
	assert.Empty(t, owners)

	owner, err := s.ScriptOwner("stats-tool")
	require.NoError(t, err)
	assert.Empty(t, owner)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "report", list[0].Name)
}

func TestCommitReplacesPreviousRecord(t *testing.T) {
	s := openTestStore(t)

	old := statsRecord("0.1")
	require.NoError(t, s.Commit(old, nil))

	upgraded := statsRecord("0.2")
	upgraded.Dependencies = []LibRef{{Name: "httplib", Version: "2.0.0"}}
	require.NoError(t, s.Commit(upgraded, old))

	got, err := s.Get("stats")
	require.NoError(t, err)
	assert.Equal(t, "0.2", got.Version)

	owners, err := s.LibraryOwners("httplib", "1.2.0")
	require.NoError(t, err)
	assert.Empty(t, owners)

	owners, err = s.LibraryOwners("httplib", "2.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"stats"}, owners)

	owner, err := s.ScriptOwner("stats-tool")
	require.NoError(t, err)
	assert.Equal(t, "stats", owner)
}

func TestOpenOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Commit(statsRecord("0.1"), nil))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("stats")
	require.NoError(t, err)
	assert.Equal(t, "0.1", got.Version)
}
