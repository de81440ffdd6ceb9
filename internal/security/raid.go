package security

import (
	"sync"
	"time"
)

type RaidConfig struct {
	MaxRecentAccounts int           // young accounts within the window that trip detection
	AccountAgeDays    int           // accounts at most this old count as young
	JoinWindow        time.Duration // trailing window size
	AutoBan           bool
	LockdownDuration  time.Duration
}

type JoinRecord struct {
	UserID         string
	Username       string
	JoinedAt       time.Time
	AccountAgeDays int
}

type RaidVerdict struct {
	Triggered bool
	Suspects  []JoinRecord
}

type raidState struct {
	window         []JoinRecord
	lockdownActive bool
	lockdownUntil  time.Time
}

// RaidDetector tracks new-account join velocity per guild. Guilds are
// fully independent; no global lock spans them beyond the map itself.
type RaidDetector struct {
	cfg    RaidConfig
	mu     sync.Mutex
	guilds map[string]*raidState
}

func NewRaidDetector(cfg RaidConfig) *RaidDetector {
	return &RaidDetector{cfg: cfg, guilds: make(map[string]*raidState)}
}

// Observe records one join. During lockdown joins still accumulate but
// never retrigger; detection resumes only after EndLockdown.
func (d *RaidDetector) Observe(guildID string, rec JoinRecord) RaidVerdict {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.guilds[guildID]
	if st == nil {
		st = &raidState{}
		d.guilds[guildID] = st
	}

	st.window = append(st.window, rec)
	st.window = pruneJoins(st.window, rec.JoinedAt.Add(-d.cfg.JoinWindow))

	if st.lockdownActive {
		return RaidVerdict{}
	}

	var suspects []JoinRecord
	for _, j := range st.window {
		if j.AccountAgeDays <= d.cfg.AccountAgeDays {
			suspects = append(suspects, j)
		}
	}
	if len(suspects) < d.cfg.MaxRecentAccounts {
		return RaidVerdict{}
	}

	st.lockdownActive = true
	st.lockdownUntil = rec.JoinedAt.Add(d.cfg.LockdownDuration)
	return RaidVerdict{Triggered: true, Suspects: suspects}
}

func (d *RaidDetector) LockdownActive(guildID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.guilds[guildID]
	return ok && st.lockdownActive
}

// EndLockdown re-arms detection for the guild. Idempotent.
func (d *RaidDetector) EndLockdown(guildID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.guilds[guildID]; ok {
		st.lockdownActive = false
		st.lockdownUntil = time.Time{}
	}
}

// Sweep prunes stale join windows and drops idle guild entries.
func (d *RaidDetector) Sweep(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := now.Add(-d.cfg.JoinWindow)
	for guildID, st := range d.guilds {
		st.window = pruneJoins(st.window, cutoff)
		if len(st.window) == 0 && !st.lockdownActive {
			delete(d.guilds, guildID)
		}
	}
}

func pruneJoins(window []JoinRecord, cutoff time.Time) []JoinRecord {
	kept := window[:0]
	for _, j := range window {
		if j.JoinedAt.After(cutoff) {
			kept = append(kept, j)
		}
	}
	return kept
}
