// Package snapshot captures a guild's structural state into a versioned,
// self-contained document and replays it against a target guild.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever the document layout changes in a way
// older readers cannot ignore. New fields alone do not require a bump.
const SchemaVersion = 1

// OverwritePair is a raw allow/deny permission-bit pair for one subject.
// Subjects are keyed by role name, not by the source guild's role IDs:
// numeric identities do not survive a restore into a different guild,
// names do.
type OverwritePair struct {
	Allow int64 `json:"allow"`
	Deny  int64 `json:"deny"`
}

type GuildInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	BannerURL   string `json:"banner_url,omitempty"`
}

type RoleTags struct {
	BotID             string `json:"bot_id,omitempty"`
	IntegrationID     string `json:"integration_id,omitempty"`
	PremiumSubscriber bool   `json:"premium_subscriber,omitempty"`
}

type RoleSnapshot struct {
	Name         string   `json:"name"`
	Color        int      `json:"color"`
	Hoist        bool     `json:"hoist"`
	Mentionable  bool     `json:"mentionable"`
	Position     int      `json:"position"`
	Permissions  int64    `json:"permissions"`
	IconURL      string   `json:"icon_url,omitempty"`
	UnicodeEmoji string   `json:"unicode_emoji,omitempty"`
	Managed      bool     `json:"managed"`
	Tags         RoleTags `json:"tags"`
}

type CategorySnapshot struct {
	Name       string                   `json:"name"`
	Position   int                      `json:"position"`
	Overwrites map[string]OverwritePair `json:"overwrites"`
}

type ChannelSnapshot struct {
	Name           string                   `json:"name"`
	Kind           string                   `json:"kind"`
	Position       int                      `json:"position"`
	ParentCategory string                   `json:"parent_category,omitempty"`
	Topic          string                   `json:"topic,omitempty"`
	Slowmode       int                      `json:"slowmode,omitempty"`
	NSFW           bool                     `json:"nsfw,omitempty"`
	Bitrate        int                      `json:"bitrate,omitempty"`
	UserLimit      int                      `json:"user_limit,omitempty"`
	Overwrites     map[string]OverwritePair `json:"overwrites"`
}

type EmojiSnapshot struct {
	Name          string   `json:"name"`
	SourceURL     string   `json:"source_url"`
	Animated      bool     `json:"animated"`
	Managed       bool     `json:"managed"`
	RequireColons bool     `json:"require_colons"`
	Roles         []string `json:"roles,omitempty"`
}

type Document struct {
	ServerInfo    GuildInfo          `json:"server_info"`
	Roles         []RoleSnapshot     `json:"roles"`
	Categories    []CategorySnapshot `json:"categories"`
	Channels      []ChannelSnapshot  `json:"channels"`
	Emojis        []EmojiSnapshot    `json:"emojis"`
	CreatedAt     time.Time          `json:"created_at"`
	SchemaVersion int                `json:"schema_version"`
}

func validKind(kind string) bool {
	switch kind {
	case "text", "voice", "news", "forum":
		return true
	}
	return false
}

// Validate rejects documents this version of the code cannot replay.
func (d *Document) Validate() error {
	if d.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than supported %d",
			ErrInvalidDocument, d.SchemaVersion, SchemaVersion)
	}
	for _, r := range d.Roles {
		if r.Name == "" {
			return fmt.Errorf("%w: role with empty name", ErrInvalidDocument)
		}
	}
	for _, c := range d.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: category with empty name", ErrInvalidDocument)
		}
	}
	for _, ch := range d.Channels {
		if ch.Name == "" {
			return fmt.Errorf("%w: channel with empty name", ErrInvalidDocument)
		}
		if !validKind(ch.Kind) {
			return fmt.Errorf("%w: channel %q has unknown kind %q", ErrInvalidDocument, ch.Name, ch.Kind)
		}
	}
	return nil
}

// Encode serializes the document for storage.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a stored document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
