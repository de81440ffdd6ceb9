// Package store is the durable backup catalog: one metadata row plus the
// snapshot blob per named backup, kept in a single SQLite database so
// both always commit together.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"guildkeeper/internal/snapshot"
)

var (
	ErrNotFound      = errors.New("backup not found")
	ErrAlreadyExists = errors.New("backup already exists")
)

// Record is the metadata row for one named backup.
type Record struct {
	Name        string
	GuildID     string
	GuildName   string
	CreatedAt   time.Time
	CreatedBy   string
	Description string
	Location    string
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS backups (
	name        TEXT PRIMARY KEY,
	guild_id    TEXT NOT NULL,
	guild_name  TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	created_by  TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	document    BLOB NOT NULL
);
`

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open backup db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init backup db schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a new backup. It fails with ErrAlreadyExists when the name
// is taken; callers that really want to overwrite must Delete first or
// use Replace.
func (s *Store) Put(name string, doc *snapshot.Document, meta Record) error {
	return s.write(name, doc, meta, false)
}

// Replace is the unconditional storage primitive beneath Put.
func (s *Store) Replace(name string, doc *snapshot.Document, meta Record) error {
	return s.write(name, doc, meta, true)
}

func (s *Store) write(name string, doc *snapshot.Document, meta Record, overwrite bool) error {
	blob, err := doc.Encode()
	if err != nil {
		return err
	}

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	if meta.Location == "" {
		meta.Location = "sqlite://backups/" + name
	}

	verb := "INSERT"
	if overwrite {
		verb = "INSERT OR REPLACE"
	}
	_, err = s.db.Exec(verb+` INTO backups
		(name, guild_id, guild_name, created_at, created_by, description, location, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, meta.GuildID, meta.GuildName, meta.CreatedAt, meta.CreatedBy,
		meta.Description, meta.Location, blob)
	if err != nil {
		if !overwrite && isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		return fmt.Errorf("store backup %q: %w", name, err)
	}
	return nil
}

// Get loads the snapshot document for a named backup.
func (s *Store) Get(name string) (*snapshot.Document, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT document FROM backups WHERE name = ?`, name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load backup %q: %w", name, err)
	}
	return snapshot.Decode(blob)
}

// Info returns just the metadata row.
func (s *Store) Info(name string) (*Record, error) {
	row := s.db.QueryRow(`SELECT name, guild_id, guild_name, created_at, created_by, description, location
		FROM backups WHERE name = ?`, name)

	var rec Record
	err := row.Scan(&rec.Name, &rec.GuildID, &rec.GuildName, &rec.CreatedAt,
		&rec.CreatedBy, &rec.Description, &rec.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load backup info %q: %w", name, err)
	}
	return &rec, nil
}

// List returns metadata rows newest first. An empty guildID lists all.
func (s *Store) List(guildID string) ([]Record, error) {
	query := `SELECT name, guild_id, guild_name, created_at, created_by, description, location
		FROM backups ORDER BY created_at DESC`
	args := []any{}
	if guildID != "" {
		query = `SELECT name, guild_id, guild_name, created_at, created_by, description, location
			FROM backups WHERE guild_id = ? ORDER BY created_at DESC`
		args = append(args, guildID)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.GuildID, &rec.GuildName, &rec.CreatedAt,
			&rec.CreatedBy, &rec.Description, &rec.Location); err != nil {
			return nil, fmt.Errorf("scan backup row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a backup; reports whether anything was deleted.
func (s *Store) Delete(name string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM backups WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete backup %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	// modernc/sqlite reports constraint failures by message; there is no
	// exported error code type on the database/sql surface.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
