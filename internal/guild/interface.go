// Package guild abstracts read and write access to a live guild so the
// snapshot pipeline and the security detectors can be exercised against
// fakes. The only production implementation sits on top of discordgo.
package guild

import (
	"context"
	"time"
)

// Permission bits used when provisioning the muted role.
const (
	PermSendMessages int64 = 1 << 11
	PermSpeak        int64 = 1 << 21
	PermViewChannel  int64 = 1 << 10
	PermManageRoles  int64 = 1 << 28
)

// Channel kinds as stored in snapshots.
const (
	KindText  = "text"
	KindVoice = "voice"
	KindNews  = "news"
	KindForum = "forum"
)

type Metadata struct {
	ID          string
	Name        string
	Description string
	IconURL     string
	BannerURL   string
	OwnerID     string
}

type RoleTags struct {
	BotID             string
	IntegrationID     string
	PremiumSubscriber bool
}

type Role struct {
	ID           string
	Name         string
	Color        int
	Hoist        bool
	Mentionable  bool
	Managed      bool
	Position     int
	Permissions  int64
	IconURL      string
	UnicodeEmoji string
	Tags         RoleTags
}

// Overwrite is a raw allow/deny permission pair for one subject, as read
// from the live guild. SubjectType is "role" or "member".
type Overwrite struct {
	SubjectID   string
	SubjectType string
	Allow       int64
	Deny        int64
}

type Category struct {
	ID         string
	Name       string
	Position   int
	Overwrites []Overwrite
}

type Channel struct {
	ID         string
	Name       string
	Kind       string
	Position   int
	ParentID   string
	Topic      string
	NSFW       bool
	Slowmode   int
	Bitrate    int
	UserLimit  int
	Overwrites []Overwrite
}

type Emoji struct {
	ID            string
	Name          string
	URL           string
	Animated      bool
	Managed       bool
	RequireColons bool
	Roles         []string
}

type Ban struct {
	UserID   string
	Username string
	Reason   string
}

type Member struct {
	UserID   string
	Username string
	Bot      bool
	JoinedAt time.Time
}

// DataSource is read-only access to live guild structure. Bans and
// Members are cursor-paginated: pass the last user ID of the previous
// page as afterID, or "" for the first page. AllBans/AllMembers walk
// the pages for callers that want the full set.
type DataSource interface {
	Guild(guildID string) (*Metadata, error)
	Roles(guildID string) ([]Role, error)
	Categories(guildID string) ([]Category, error)
	Channels(guildID string) ([]Channel, error)
	Emojis(guildID string) ([]Emoji, error)
	Bans(guildID string, limit int, afterID string) ([]Ban, error)
	Members(guildID string, limit int, afterID string) ([]Member, error)
}

type RoleCreate struct {
	Name        string
	Color       int
	Hoist       bool
	Mentionable bool
	Permissions int64
}

type ChannelCreate struct {
	Name      string
	Kind      string
	ParentID  string
	Topic     string
	NSFW      bool
	Slowmode  int
	Bitrate   int
	UserLimit int
}

// Mutator covers every guild write the bot performs. Each call may fail
// with a permission or transport error; callers decide whether that
// aborts anything.
type Mutator interface {
	CreateRole(guildID string, rc RoleCreate) (*Role, error)
	SetRoleEmoji(guildID, roleID, emoji string) error
	CreateCategory(guildID, name string) (*Category, error)
	CreateChannel(guildID string, cc ChannelCreate) (*Channel, error)
	SetOverwrite(guildID, targetID string, ow Overwrite) error
	CreateEmoji(guildID, name string, animated bool, image []byte) error
	BanMember(guildID, userID, reason string) error
	UnbanMember(guildID, userID string) error
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	DeleteMessage(channelID, messageID string) error
}

type NoticeField struct {
	Name  string
	Value string
}

type Notice struct {
	Title  string
	Body   string
	Color  int
	Fields []NoticeField
}

// Notifier delivers status and alert messages. SendGuild picks a suitable
// channel for the guild when the caller has no specific one.
type Notifier interface {
	Send(channelID string, n Notice) error
	SendGuild(guildID string, n Notice) error
}

// BlobFetcher retrieves binary content by URL. Used only for emoji images
// during restore.
type BlobFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AccountAgeDays reports full days between account creation and now.
func AccountAgeDays(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt).Hours() / 24)
}
