package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildkeeper/internal/snapshot"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "backups.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(guildName string) *snapshot.Document {
	return &snapshot.Document{
		ServerInfo:    snapshot.GuildInfo{ID: "g1", Name: guildName},
		Roles:         []snapshot.RoleSnapshot{{Name: "Mods"}},
		Channels:      []snapshot.ChannelSnapshot{{Name: "general", Kind: "text"}},
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: snapshot.SchemaVersion,
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("daily", testDoc("My Guild"), Record{
		GuildID:     "g1",
		GuildName:   "My Guild",
		CreatedBy:   "admin",
		Description: "nightly snapshot",
	}))

	doc, err := s.Get("daily")
	require.NoError(t, err)
	assert.Equal(t, "My Guild", doc.ServerInfo.Name)
	require.Len(t, doc.Roles, 1)
	assert.Equal(t, "Mods", doc.Roles[0].Name)

	rec, err := s.Info("daily")
	require.NoError(t, err)
	assert.Equal(t, "g1", rec.GuildID)
	assert.Equal(t, "admin", rec.CreatedBy)
	assert.Equal(t, "nightly snapshot", rec.Description)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NotEmpty(t, rec.Location)
}

func TestStore_PutCollisionKeepsOriginal(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("daily", testDoc("Original"), Record{GuildID: "g1"}))

	err := s.Put("daily", testDoc("Imposter"), Record{GuildID: "g1"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	doc, err := s.Get("daily")
	require.NoError(t, err)
	assert.Equal(t, "Original", doc.ServerInfo.Name)
}

func TestStore_ReplaceOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("daily", testDoc("Old"), Record{GuildID: "g1"}))
	require.NoError(t, s.Replace("daily", testDoc("New"), Record{GuildID: "g1"}))

	doc, err := s.Get("daily")
	require.NoError(t, err)
	assert.Equal(t, "New", doc.ServerInfo.Name)
}

func TestStore_GetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Info("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListFiltersByGuildNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put("old", testDoc("A"), Record{GuildID: "g1", CreatedAt: base}))
	require.NoError(t, s.Put("new", testDoc("A"), Record{GuildID: "g1", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.Put("other", testDoc("B"), Record{GuildID: "g2", CreatedAt: base}))

	records, err := s.List("g1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].Name)
	assert.Equal(t, "old", records[1].Name)

	all, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("daily", testDoc("A"), Record{GuildID: "g1"}))

	deleted, err := s.Delete("daily")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.Get("daily")
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err = s.Delete("daily")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backups.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("daily", testDoc("Persisted"), Record{GuildID: "g1"}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	doc, err := s2.Get("daily")
	require.NoError(t, err)
	assert.Equal(t, "Persisted", doc.ServerInfo.Name)
}
