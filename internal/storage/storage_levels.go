package storage

import (
	"math"
	"sort"
	"time"
)

const (
	xpCooldown       = 60 * time.Second
	minMessageLength = 20
)

// LevelForXP maps accumulated XP to a level.
func LevelForXP(xp int) int {
	level := int(0.1 * math.Sqrt(float64(xp)))
	if level < 1 {
		level = 1
	}
	return level
}

// AwardMessageXP grants XP for one message, honoring the per-user
// cooldown and minimum length. Returns the new level when the message
// caused a level-up, otherwise 0.
func (s *Storage) AwardMessageXP(guildID, userID string, messageLen, xp int) (int, error) {
	levelUp := 0
	err := s.update(guildID, func(r *Record) error {
		if messageLen < minMessageLength {
			return nil
		}
		rec := r.Levels[userID]
		now := time.Now().UTC()
		if !rec.LastXP.IsZero() && now.Sub(rec.LastXP) < xpCooldown {
			return nil
		}

		rec.XP += xp
		rec.Messages++
		rec.LastXP = now
		if lvl := LevelForXP(rec.XP); lvl > rec.Level {
			rec.Level = lvl
			levelUp = lvl
		} else if rec.Level == 0 {
			rec.Level = 1
		}
		r.Levels[userID] = rec
		return nil
	})
	return levelUp, err
}

// UserLevel returns one user's level record.
func (s *Storage) UserLevel(guildID, userID string) (LevelRecord, error) {
	var rec LevelRecord
	err := s.view(guildID, func(r *Record) {
		rec = r.Levels[userID]
		if rec.Level == 0 {
			rec.Level = 1
		}
	})
	return rec, err
}

type LeaderboardEntry struct {
	UserID string
	LevelRecord
}

// Leaderboard returns the guild's top users by XP.
func (s *Storage) Leaderboard(guildID string, limit int) ([]LeaderboardEntry, error) {
	var out []LeaderboardEntry
	err := s.view(guildID, func(r *Record) {
		for id, rec := range r.Levels {
			out = append(out, LeaderboardEntry{UserID: id, LevelRecord: rec})
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].XP > out[j].XP })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
