package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.AddToWhitelist("g1", "u1", "admin", "trusted"))
	require.NoError(t, s.LogWarning("g1", "u2", "spam", "warn"))
	require.NoError(t, s.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	assert.True(t, s2.IsWhitelisted("g1", "u1"))
	warnings, err := s2.UserWarnings("g1", "u2")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "spam", warnings[0].Reason)
}

func TestStorage_ReadDoesNotCreateRecords(t *testing.T) {
	s := openTestStorage(t)

	// A pure read on an unknown guild must not fail.
	warnings, err := s.UserWarnings("ghost", "u1")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.False(t, s.IsWhitelisted("ghost", "u1"))
}

func TestWarnings_LogAndQuery(t *testing.T) {
	s := openTestStorage(t)

	require.NoError(t, s.LogWarning("g1", "u1", "spam", "warn"))
	require.NoError(t, s.LogWarning("g1", "u1", "spam again", "mute"))
	require.NoError(t, s.LogWarning("g1", "u2", "spam", "warn"))

	warnings, err := s.UserWarnings("g1", "u1")
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	// Newest first.
	assert.Equal(t, "mute", warnings[0].Action)
	assert.Equal(t, "warn", warnings[1].Action)

	other, err := s.UserWarnings("g2", "u1")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestWarnings_ClearReportsCount(t *testing.T) {
	s := openTestStorage(t)

	require.NoError(t, s.LogWarning("g1", "u1", "spam", "warn"))
	require.NoError(t, s.LogModeratorWarning("g1", "u1", "rude", "warn", "mod1"))
	require.NoError(t, s.LogWarning("g1", "u2", "spam", "warn"))

	removed, err := s.ClearUserWarnings("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := s.UserWarnings("g1", "u2")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestWhitelist_RoundTrip(t *testing.T) {
	s := openTestStorage(t)

	assert.False(t, s.IsWhitelisted("g1", "u1"))

	require.NoError(t, s.AddToWhitelist("g1", "u1", "admin", "staff member"))
	assert.True(t, s.IsWhitelisted("g1", "u1"))
	assert.False(t, s.IsWhitelisted("g2", "u1"))

	entries, err := s.Whitelist("g1")
	require.NoError(t, err)
	require.Contains(t, entries, "u1")
	assert.Equal(t, "admin", entries["u1"].AddedBy)

	removed, err := s.RemoveFromWhitelist("g1", "u1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, s.IsWhitelisted("g1", "u1"))

	removed, err = s.RemoveFromWhitelist("g1", "u1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestBank_OpensWithStartingBalance(t *testing.T) {
	s := openTestStorage(t)

	balance, err := s.Balance("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, startingBalance, balance)
}

func TestBank_Transfer(t *testing.T) {
	s := openTestStorage(t)

	require.NoError(t, s.Transfer("g1", "u1", "u2", 300))

	from, _ := s.Balance("g1", "u1")
	to, _ := s.Balance("g1", "u2")
	assert.Equal(t, startingBalance-300, from)
	assert.Equal(t, startingBalance+300, to)

	err := s.Transfer("g1", "u1", "u2", startingBalance*10)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	err = s.Transfer("g1", "u1", "u2", -5)
	assert.Error(t, err)
}

func TestBank_AdjustFloorsAtZero(t *testing.T) {
	s := openTestStorage(t)

	balance, err := s.Adjust("g1", "u1", 500)
	require.NoError(t, err)
	assert.Equal(t, startingBalance+500, balance)

	_, err = s.Adjust("g1", "u1", -(startingBalance + 501))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestBank_CasinoCooldown(t *testing.T) {
	s := openTestStorage(t)

	left, err := s.CasinoCooldownLeft("g1", "u1", 5*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, left)

	require.NoError(t, s.StampCasino("g1", "u1"))

	left, err = s.CasinoCooldownLeft("g1", "u1", 5*time.Minute)
	require.NoError(t, err)
	assert.Greater(t, left, 4*time.Minute)
}

func TestLevels_XPGatingAndLevelUp(t *testing.T) {
	s := openTestStorage(t)

	// Short messages never earn XP.
	up, err := s.AwardMessageXP("g1", "u1", 5, 20)
	require.NoError(t, err)
	assert.Zero(t, up)

	rec, err := s.UserLevel("g1", "u1")
	require.NoError(t, err)
	assert.Zero(t, rec.XP)

	// A qualifying message earns XP; a second one inside the cooldown does not.
	_, err = s.AwardMessageXP("g1", "u1", 50, 20)
	require.NoError(t, err)
	_, err = s.AwardMessageXP("g1", "u1", 50, 20)
	require.NoError(t, err)

	rec, err = s.UserLevel("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 20, rec.XP)
	assert.Equal(t, 1, rec.Messages)
	assert.Equal(t, 1, rec.Level)
}

func TestLevels_LevelCurve(t *testing.T) {
	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(100))
	assert.Equal(t, 2, LevelForXP(400))
	assert.Equal(t, 3, LevelForXP(900))
	assert.Equal(t, 10, LevelForXP(10000))
}

func TestLevels_Leaderboard(t *testing.T) {
	s := openTestStorage(t)

	_, err := s.AwardMessageXP("g1", "low", 50, 10)
	require.NoError(t, err)
	_, err = s.AwardMessageXP("g1", "high", 50, 90)
	require.NoError(t, err)
	_, err = s.AwardMessageXP("g1", "mid", 50, 40)
	require.NoError(t, err)

	top, err := s.Leaderboard("g1", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].UserID)
	assert.Equal(t, "mid", top[1].UserID)
}

func TestTickets_SequenceAndCategory(t *testing.T) {
	s := openTestStorage(t)

	n1, err := s.NextTicketNumber("g1")
	require.NoError(t, err)
	n2, err := s.NextTicketNumber("g1")
	require.NoError(t, err)
	assert.Equal(t, 1, n1)
	assert.Equal(t, 2, n2)

	// Guilds count independently.
	other, err := s.NextTicketNumber("g2")
	require.NoError(t, err)
	assert.Equal(t, 1, other)

	require.NoError(t, s.SetTicketCategory("g1", "cat-42"))
	id, err := s.GetTicketCategory("g1")
	require.NoError(t, err)
	assert.Equal(t, "cat-42", id)
}

func TestRaidEvents_NewestFirst(t *testing.T) {
	s := openTestStorage(t)

	require.NoError(t, s.LogRaid("g1", "recent_accounts", 5, "auto-ban: 5 accounts", "first"))
	require.NoError(t, s.LogRaid("g1", "recent_accounts", 7, "auto-ban: 7 accounts", "second"))

	events, err := s.RaidEvents("g1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "second", events[0].Details)
	assert.Equal(t, "first", events[1].Details)
}
