package security

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRaidConfig() RaidConfig {
	return RaidConfig{
		MaxRecentAccounts: 5,
		AccountAgeDays:    2,
		JoinWindow:        60 * time.Second,
		AutoBan:           true,
		LockdownDuration:  5 * time.Minute,
	}
}

func join(n int, ageDays int, at time.Time) JoinRecord {
	return JoinRecord{
		UserID:         fmt.Sprintf("user-%d", n),
		Username:       fmt.Sprintf("raider%d", n),
		JoinedAt:       at,
		AccountAgeDays: ageDays,
	}
}

func TestRaidDetector_TriggersAtThreshold(t *testing.T) {
	d := NewRaidDetector(testRaidConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for n := 0; n < 4; n++ {
		v := d.Observe("g1", join(n, 0, base.Add(time.Duration(n)*time.Second)))
		require.False(t, v.Triggered, "join %d should not trigger", n)
	}

	v := d.Observe("g1", join(4, 1, base.Add(4*time.Second)))
	require.True(t, v.Triggered)
	assert.Len(t, v.Suspects, 5)
	assert.True(t, d.LockdownActive("g1"))
}

func TestRaidDetector_OldAccountsDoNotCount(t *testing.T) {
	d := NewRaidDetector(testRaidConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for n := 0; n < 10; n++ {
		v := d.Observe("g1", join(n, 365, base.Add(time.Duration(n)*time.Second)))
		assert.False(t, v.Triggered)
	}
	assert.False(t, d.LockdownActive("g1"))
}

func TestRaidDetector_WindowExpiry(t *testing.T) {
	d := NewRaidDetector(testRaidConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Four young joins, then a long gap; the fifth sees an empty window.
	for n := 0; n < 4; n++ {
		d.Observe("g1", join(n, 0, base.Add(time.Duration(n)*time.Second)))
	}
	v := d.Observe("g1", join(4, 0, base.Add(2*time.Minute)))
	assert.False(t, v.Triggered)
}

func TestRaidDetector_LockdownSuppressesRetrigger(t *testing.T) {
	d := NewRaidDetector(testRaidConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for n := 0; n < 5; n++ {
		d.Observe("g1", join(n, 0, base.Add(time.Duration(n)*time.Second)))
	}
	require.True(t, d.LockdownActive("g1"))

	// Joins during lockdown never produce a second alert.
	for n := 5; n < 15; n++ {
		v := d.Observe("g1", join(n, 0, base.Add(time.Duration(n)*time.Second)))
		assert.False(t, v.Triggered)
	}
}

func TestRaidDetector_EndLockdownRearms(t *testing.T) {
	d := NewRaidDetector(testRaidConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for n := 0; n < 5; n++ {
		d.Observe("g1", join(n, 0, base.Add(time.Duration(n)*time.Second)))
	}
	require.True(t, d.LockdownActive("g1"))

	d.EndLockdown("g1")
	assert.False(t, d.LockdownActive("g1"))

	// A fresh wave after the window trips detection again.
	later := base.Add(10 * time.Minute)
	var v RaidVerdict
	for n := 20; n < 25; n++ {
		v = d.Observe("g1", join(n, 0, later.Add(time.Duration(n)*time.Second)))
	}
	assert.True(t, v.Triggered)
}

func TestRaidDetector_GuildsAreIndependent(t *testing.T) {
	d := NewRaidDetector(testRaidConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for n := 0; n < 5; n++ {
		d.Observe("g1", join(n, 0, base.Add(time.Duration(n)*time.Second)))
	}
	require.True(t, d.LockdownActive("g1"))
	assert.False(t, d.LockdownActive("g2"))

	v := d.Observe("g2", join(0, 0, base))
	assert.False(t, v.Triggered)
}

func TestRaidDetector_SweepKeepsLockedGuilds(t *testing.T) {
	d := NewRaidDetector(testRaidConfig())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for n := 0; n < 5; n++ {
		d.Observe("locked", join(n, 0, base.Add(time.Duration(n)*time.Second)))
	}
	d.Observe("quiet", join(0, 365, base))

	d.Sweep(base.Add(10 * time.Minute))

	assert.True(t, d.LockdownActive("locked"))
	assert.False(t, d.LockdownActive("quiet"))
}
