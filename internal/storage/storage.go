// Package storage keeps per-guild bot state (warning history, raid log,
// whitelist, bank ledger, XP) in a JSON-file key-value store, one record
// per guild keyed by guild ID.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const (
	warningHistoryLimit = 200
	raidHistoryLimit    = 100
)

type WarningRecord struct {
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	Action      string    `json:"action"`
	ModeratorID string    `json:"moderator_id,omitempty"`
	At          time.Time `json:"at"`
}

type RaidEventRecord struct {
	Type     string    `json:"type"`
	Accounts int       `json:"accounts"`
	Action   string    `json:"action"`
	Details  string    `json:"details"`
	At       time.Time `json:"at"`
}

type WhitelistEntry struct {
	AddedBy string    `json:"added_by"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"added_at"`
}

type BankAccount struct {
	Balance    int64     `json:"balance"`
	LastCasino time.Time `json:"last_casino,omitempty"`
}

type LevelRecord struct {
	XP       int       `json:"xp"`
	Level    int       `json:"level"`
	Messages int       `json:"messages"`
	LastXP   time.Time `json:"last_xp,omitempty"`
}

// Record is everything persisted for one guild.
type Record struct {
	Warnings         []WarningRecord           `json:"warnings"`
	RaidEvents       []RaidEventRecord         `json:"raid_events"`
	Whitelist        map[string]WhitelistEntry `json:"whitelist"` // key = user ID
	Balances         map[string]BankAccount    `json:"balances"`  // key = user ID
	Levels           map[string]LevelRecord    `json:"levels"`    // key = user ID
	TicketSeq        int                       `json:"ticket_seq"`
	TicketCategoryID string                    `json:"ticket_category_id,omitempty"`
	AlertChannelID   string                    `json:"alert_channel_id,omitempty"`
}

type Storage struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc // stops the store's autosave goroutine
	mu     sync.Mutex         // serializes read-modify-write cycles on guild records
}

func New(filePath string) (*Storage, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Storage{ds: ds, cancel: cancel}, nil
}

// Close stops the autosave loop and flushes the store to disk.
func (s *Storage) Close() error {
	s.cancel()
	return s.ds.Close()
}

// getOrCreateGuildRecord loads a guild's record, returning an empty one
// on first access. Callers must hold s.mu across the read-modify-write;
// nothing is persisted until update writes the record back.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	var record Record
	found, err := s.ds.Get(guildID, &record)
	if err != nil {
		return nil, fmt.Errorf("load guild record: %w", err)
	}
	if !found {
		return newRecord(), nil
	}

	if record.Whitelist == nil {
		record.Whitelist = map[string]WhitelistEntry{}
	}
	if record.Balances == nil {
		record.Balances = map[string]BankAccount{}
	}
	if record.Levels == nil {
		record.Levels = map[string]LevelRecord{}
	}
	if len(record.Warnings) > warningHistoryLimit {
		record.Warnings = record.Warnings[len(record.Warnings)-warningHistoryLimit:]
	}
	if len(record.RaidEvents) > raidHistoryLimit {
		record.RaidEvents = record.RaidEvents[len(record.RaidEvents)-raidHistoryLimit:]
	}
	return &record, nil
}

func newRecord() *Record {
	return &Record{
		Whitelist: map[string]WhitelistEntry{},
		Balances:  map[string]BankAccount{},
		Levels:    map[string]LevelRecord{},
	}
}

// update runs fn on the guild's record and writes it back atomically
// with respect to other callers.
func (s *Storage) update(guildID string, fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}
	if err := s.ds.Set(guildID, record); err != nil {
		return fmt.Errorf("save guild record: %w", err)
	}
	return nil
}

// view runs fn on a read-only copy of the guild's record.
func (s *Storage) view(guildID string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	fn(record)
	return nil
}

// NextTicketNumber increments and returns the guild's ticket counter.
func (s *Storage) NextTicketNumber(guildID string) (int, error) {
	var n int
	err := s.update(guildID, func(r *Record) error {
		r.TicketSeq++
		n = r.TicketSeq
		return nil
	})
	return n, err
}

func (s *Storage) SetTicketCategory(guildID, categoryID string) error {
	return s.update(guildID, func(r *Record) error {
		r.TicketCategoryID = categoryID
		return nil
	})
}

func (s *Storage) GetTicketCategory(guildID string) (string, error) {
	var id string
	err := s.view(guildID, func(r *Record) { id = r.TicketCategoryID })
	return id, err
}

func (s *Storage) SetAlertChannel(guildID, channelID string) error {
	return s.update(guildID, func(r *Record) error {
		r.AlertChannelID = channelID
		return nil
	})
}

func (s *Storage) GetAlertChannel(guildID string) (string, error) {
	var id string
	err := s.view(guildID, func(r *Record) { id = r.AlertChannelID })
	return id, err
}
