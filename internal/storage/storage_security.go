package storage

import (
	"log"
	"time"
)

// LogWarning appends a warning record for a guild.
func (s *Storage) LogWarning(guildID, userID, reason, action string) error {
	return s.update(guildID, func(r *Record) error {
		r.Warnings = append(r.Warnings, WarningRecord{
			UserID: userID,
			Reason: reason,
			Action: action,
			At:     time.Now().UTC(),
		})
		if len(r.Warnings) > warningHistoryLimit {
			r.Warnings = r.Warnings[len(r.Warnings)-warningHistoryLimit:]
		}
		return nil
	})
}

// LogModeratorWarning is LogWarning with an explicit moderator attached.
func (s *Storage) LogModeratorWarning(guildID, userID, reason, action, moderatorID string) error {
	return s.update(guildID, func(r *Record) error {
		r.Warnings = append(r.Warnings, WarningRecord{
			UserID:      userID,
			Reason:      reason,
			Action:      action,
			ModeratorID: moderatorID,
			At:          time.Now().UTC(),
		})
		return nil
	})
}

// UserWarnings returns a user's warnings, newest first.
func (s *Storage) UserWarnings(guildID, userID string) ([]WarningRecord, error) {
	var out []WarningRecord
	err := s.view(guildID, func(r *Record) {
		for i := len(r.Warnings) - 1; i >= 0; i-- {
			if r.Warnings[i].UserID == userID {
				out = append(out, r.Warnings[i])
			}
		}
	})
	return out, err
}

// ClearUserWarnings deletes a user's warning history and reports how
// many entries were removed.
func (s *Storage) ClearUserWarnings(guildID, userID string) (int, error) {
	removed := 0
	err := s.update(guildID, func(r *Record) error {
		kept := r.Warnings[:0]
		for _, w := range r.Warnings {
			if w.UserID == userID {
				removed++
				continue
			}
			kept = append(kept, w)
		}
		r.Warnings = kept
		return nil
	})
	return removed, err
}

// LogRaid appends a raid event record for a guild.
func (s *Storage) LogRaid(guildID, raidType string, accounts int, action, details string) error {
	return s.update(guildID, func(r *Record) error {
		r.RaidEvents = append(r.RaidEvents, RaidEventRecord{
			Type:     raidType,
			Accounts: accounts,
			Action:   action,
			Details:  details,
			At:       time.Now().UTC(),
		})
		if len(r.RaidEvents) > raidHistoryLimit {
			r.RaidEvents = r.RaidEvents[len(r.RaidEvents)-raidHistoryLimit:]
		}
		return nil
	})
}

// RaidEvents returns the guild's raid log, newest first.
func (s *Storage) RaidEvents(guildID string) ([]RaidEventRecord, error) {
	var out []RaidEventRecord
	err := s.view(guildID, func(r *Record) {
		for i := len(r.RaidEvents) - 1; i >= 0; i-- {
			out = append(out, r.RaidEvents[i])
		}
	})
	return out, err
}

// AlertChannel returns the guild's configured alert channel, or "" when
// unset or unreadable.
func (s *Storage) AlertChannel(guildID string) string {
	id, err := s.GetAlertChannel(guildID)
	if err != nil {
		log.Printf("[WARN] Alert channel lookup failed for %s: %v", guildID, err)
		return ""
	}
	return id
}

// IsWhitelisted reports whether the user is protected from bans. Errors
// reading the record count as not whitelisted rather than blocking
// moderation entirely.
func (s *Storage) IsWhitelisted(guildID, userID string) bool {
	var found bool
	if err := s.view(guildID, func(r *Record) {
		_, found = r.Whitelist[userID]
	}); err != nil {
		log.Printf("[WARN] Whitelist lookup failed for %s/%s: %v", guildID, userID, err)
		return false
	}
	return found
}
