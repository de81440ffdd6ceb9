package storage

import "time"

// AddToWhitelist protects a user from ban actions. Re-adding overwrites
// the previous entry.
func (s *Storage) AddToWhitelist(guildID, userID, addedBy, reason string) error {
	return s.update(guildID, func(r *Record) error {
		r.Whitelist[userID] = WhitelistEntry{
			AddedBy: addedBy,
			Reason:  reason,
			AddedAt: time.Now().UTC(),
		}
		return nil
	})
}

// RemoveFromWhitelist reports whether the user was whitelisted.
func (s *Storage) RemoveFromWhitelist(guildID, userID string) (bool, error) {
	removed := false
	err := s.update(guildID, func(r *Record) error {
		if _, ok := r.Whitelist[userID]; ok {
			delete(r.Whitelist, userID)
			removed = true
		}
		return nil
	})
	return removed, err
}

// Whitelist returns the guild's whitelist as a user ID -> entry map copy.
func (s *Storage) Whitelist(guildID string) (map[string]WhitelistEntry, error) {
	out := map[string]WhitelistEntry{}
	err := s.view(guildID, func(r *Record) {
		for id, e := range r.Whitelist {
			out[id] = e
		}
	})
	return out, err
}
