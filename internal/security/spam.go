// Package security holds the spam and raid defense layer: in-memory
// sliding-window detectors plus the enforcer that turns verdicts into
// guild actions. All detector state is process-local; a restart resets
// it, which is acceptable for a best-effort defense.
package security

import (
	"strings"
	"sync"
	"time"
)

type SpamConfig struct {
	MaxRepeated   int           // identical messages within the window that count as spam
	Window        time.Duration // trailing window size
	WarnThreshold int           // warnings before a mute
	MuteDuration  time.Duration
	MaxWarnings   int // warnings before a ban
}

type Action int

const (
	ActionNone Action = iota
	ActionWarn
	ActionMute
	ActionBan
)

func (a Action) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionMute:
		return "mute"
	case ActionBan:
		return "ban"
	}
	return "none"
}

type SpamVerdict struct {
	Action       Action
	Repeated     int
	WarningCount int
}

type spamEntry struct {
	content string
	at      time.Time
}

type spamState struct {
	window     []spamEntry
	warnings   int
	muteExpiry time.Time
}

// SpamDetector tracks message repetition per user. It is a pure state
// machine: no I/O, safe for concurrent use.
type SpamDetector struct {
	cfg   SpamConfig
	mu    sync.Mutex
	users map[string]*spamState
}

func NewSpamDetector(cfg SpamConfig) *SpamDetector {
	return &SpamDetector{cfg: cfg, users: make(map[string]*spamState)}
}

// Normalize is the content equality used for repetition counting.
func Normalize(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}

// Observe records one message and returns the action the enforcer should
// take. The warning counter is monotonic until explicitly cleared.
func (d *SpamDetector) Observe(userID, content string, at time.Time) SpamVerdict {
	norm := Normalize(content)

	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.users[userID]
	if st == nil {
		st = &spamState{}
		d.users[userID] = st
	}

	st.window = append(st.window, spamEntry{content: norm, at: at})
	cutoff := at.Add(-d.cfg.Window)
	st.window = pruneSpam(st.window, cutoff)

	repeated := 0
	for _, e := range st.window {
		if e.content == norm {
			repeated++
		}
	}
	if repeated < d.cfg.MaxRepeated {
		return SpamVerdict{Action: ActionNone, Repeated: repeated}
	}

	st.warnings++
	v := SpamVerdict{Repeated: repeated, WarningCount: st.warnings}
	switch {
	case st.warnings >= d.cfg.MaxWarnings:
		v.Action = ActionBan // supersedes any pending mute
	case st.warnings >= d.cfg.WarnThreshold:
		v.Action = ActionMute
		st.muteExpiry = at.Add(d.cfg.MuteDuration)
	default:
		v.Action = ActionWarn
	}
	return v
}

// ClearWarnings resets the warning counter and mute bookkeeping. It does
// not touch the guild's muted role; that is the unmute path.
func (d *SpamDetector) ClearWarnings(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.users[userID]; ok {
		st.warnings = 0
		st.muteExpiry = time.Time{}
	}
}

// ClearMute drops mute bookkeeping only. Idempotent.
func (d *SpamDetector) ClearMute(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.users[userID]; ok {
		st.muteExpiry = time.Time{}
	}
}

// Warnings returns the current warning count for a user.
func (d *SpamDetector) Warnings(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.users[userID]; ok {
		return st.warnings
	}
	return 0
}

// Sweep prunes stale windows and drops users with nothing left to track.
func (d *SpamDetector) Sweep(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := now.Add(-d.cfg.Window)
	for userID, st := range d.users {
		st.window = pruneSpam(st.window, cutoff)
		if !st.muteExpiry.IsZero() && st.muteExpiry.Before(now) {
			st.muteExpiry = time.Time{}
		}
		if len(st.window) == 0 && st.warnings == 0 && st.muteExpiry.IsZero() {
			delete(d.users, userID)
		}
	}
}

// Stats reports tracked users and users currently under a mute.
func (d *SpamDetector) Stats(now time.Time) (tracked, muted int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, st := range d.users {
		tracked++
		if st.muteExpiry.After(now) {
			muted++
		}
	}
	return tracked, muted
}

func pruneSpam(window []spamEntry, cutoff time.Time) []spamEntry {
	kept := window[:0]
	for _, e := range window {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
