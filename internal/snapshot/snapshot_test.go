package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildkeeper/internal/guild"
)

// memGuild is an in-memory guild implementing guild.DataSource,
// guild.Mutator and guild.BlobFetcher. Mutations append; failure
// injection is per entity name.
type memGuild struct {
	mu sync.Mutex

	meta       guild.Metadata
	roles      []guild.Role
	categories []guild.Category
	channels   []guild.Channel
	emojis     []guild.Emoji

	overwrites map[string][]guild.Overwrite // target ID -> applied overwrites
	blobs      map[string][]byte            // URL -> image

	failChannel  map[string]bool // channel name -> CreateChannel error
	failRole     map[string]bool
	createdRoles int
	nextID       int
}

func newMemGuild(name string) *memGuild {
	return &memGuild{
		meta:        guild.Metadata{ID: "g1", Name: name},
		overwrites:  map[string][]guild.Overwrite{},
		blobs:       map[string][]byte{},
		failChannel: map[string]bool{},
		failRole:    map[string]bool{},
	}
}

func (m *memGuild) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memGuild) Guild(string) (*guild.Metadata, error) {
	meta := m.meta
	return &meta, nil
}

func (m *memGuild) Roles(string) ([]guild.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]guild.Role, len(m.roles))
	copy(out, m.roles)
	return out, nil
}

func (m *memGuild) Categories(string) ([]guild.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]guild.Category, len(m.categories))
	copy(out, m.categories)
	return out, nil
}

func (m *memGuild) Channels(string) ([]guild.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]guild.Channel, len(m.channels))
	copy(out, m.channels)
	return out, nil
}

func (m *memGuild) Emojis(string) ([]guild.Emoji, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]guild.Emoji, len(m.emojis))
	copy(out, m.emojis)
	return out, nil
}

func (m *memGuild) CreateRole(_ string, rc guild.RoleCreate) (*guild.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRole[rc.Name] {
		return nil, errors.New("injected role failure")
	}
	r := guild.Role{
		ID:          m.id("role"),
		Name:        rc.Name,
		Color:       rc.Color,
		Hoist:       rc.Hoist,
		Mentionable: rc.Mentionable,
		Permissions: rc.Permissions,
		Position:    len(m.roles),
	}
	m.roles = append(m.roles, r)
	m.createdRoles++
	return &r, nil
}

func (m *memGuild) SetRoleEmoji(_, _, _ string) error { return nil }

func (m *memGuild) CreateCategory(_, name string) (*guild.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := guild.Category{ID: m.id("cat"), Name: name, Position: len(m.categories)}
	m.categories = append(m.categories, c)
	return &c, nil
}

func (m *memGuild) CreateChannel(_ string, cc guild.ChannelCreate) (*guild.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failChannel[cc.Name] {
		return nil, errors.New("injected channel failure")
	}
	ch := guild.Channel{
		ID:       m.id("ch"),
		Name:     cc.Name,
		Kind:     cc.Kind,
		ParentID: cc.ParentID,
		Topic:    cc.Topic,
		Position: len(m.channels),
	}
	m.channels = append(m.channels, ch)
	return &ch, nil
}

func (m *memGuild) SetOverwrite(_, targetID string, ow guild.Overwrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overwrites[targetID] = append(m.overwrites[targetID], ow)
	return nil
}

func (m *memGuild) CreateEmoji(_, name string, animated bool, image []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emojis = append(m.emojis, guild.Emoji{ID: m.id("emoji"), Name: name, Animated: animated})
	return nil
}

func (m *memGuild) Bans(string, int, string) ([]guild.Ban, error)       { return nil, nil }
func (m *memGuild) Members(string, int, string) ([]guild.Member, error) { return nil, nil }

func (m *memGuild) BanMember(_, _, _ string) error  { return nil }
func (m *memGuild) UnbanMember(_, _ string) error   { return nil }
func (m *memGuild) AddRole(_, _, _ string) error    { return nil }
func (m *memGuild) RemoveRole(_, _, _ string) error { return nil }
func (m *memGuild) DeleteMessage(_, _ string) error { return nil }

func (m *memGuild) Fetch(_ context.Context, url string) ([]byte, error) {
	if b, ok := m.blobs[url]; ok {
		return b, nil
	}
	return nil, errors.New("blob not found")
}

func sourceGuild() *memGuild {
	m := newMemGuild("Source")
	m.roles = []guild.Role{
		{ID: "g1", Name: "@everyone", Position: 0},
		{ID: "r-mods", Name: "Mods", Position: 2, Color: 0xFF0000, Permissions: 8},
		{ID: "r-members", Name: "Members", Position: 1},
		{ID: "r-bot", Name: "SomeBot", Position: 3, Managed: true},
	}
	m.categories = []guild.Category{
		{ID: "c-general", Name: "General", Position: 0, Overwrites: []guild.Overwrite{
			{SubjectID: "r-mods", SubjectType: "role", Allow: 1024},
			{SubjectID: "u-someone", SubjectType: "member", Allow: 2048},
			{SubjectID: "r-gone", SubjectType: "role", Deny: 2048},
		}},
	}
	m.channels = []guild.Channel{
		{ID: "ch-rules", Name: "rules", Kind: guild.KindText, Position: 0, ParentID: "c-general",
			Overwrites: []guild.Overwrite{{SubjectID: "r-members", SubjectType: "role", Deny: 2048}}},
		{ID: "ch-lounge", Name: "lounge", Kind: guild.KindVoice, Position: 1, ParentID: "c-general"},
	}
	m.emojis = []guild.Emoji{
		{ID: "e1", Name: "party", URL: "https://cdn.example/party.png", Roles: []string{"r-mods", "r-gone"}},
	}
	return m
}

func TestCapture_ExcludesEveryoneAndKeysOverwritesByName(t *testing.T) {
	src := sourceGuild()

	doc, err := Capture(src, "g1")
	require.NoError(t, err)

	names := make([]string, 0, len(doc.Roles))
	for _, r := range doc.Roles {
		names = append(names, r.Name)
	}
	assert.NotContains(t, names, "@everyone")
	// Sorted by position: Members before Mods.
	assert.Equal(t, []string{"Members", "Mods", "SomeBot"}, names)

	// Member overwrites and dangling role overwrites are dropped.
	require.Len(t, doc.Categories, 1)
	assert.Equal(t, map[string]OverwritePair{"Mods": {Allow: 1024}}, doc.Categories[0].Overwrites)

	require.Len(t, doc.Channels, 2)
	assert.Equal(t, "General", doc.Channels[0].ParentCategory)
	assert.Equal(t, map[string]OverwritePair{"Members": {Deny: 2048}}, doc.Channels[0].Overwrites)

	// Emoji role restrictions keep only resolvable names.
	require.Len(t, doc.Emojis, 1)
	assert.Equal(t, []string{"Mods"}, doc.Emojis[0].Roles)

	assert.Equal(t, SchemaVersion, doc.SchemaVersion)
}

func TestCapture_EncodeDecodeRoundTrip(t *testing.T) {
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)

	data, err := doc.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Roles, decoded.Roles)
	assert.Equal(t, doc.Categories, decoded.Categories)
	assert.Equal(t, doc.Channels, decoded.Channels)
	assert.Equal(t, doc.Emojis, decoded.Emojis)
}

func TestDecode_RejectsNewerSchema(t *testing.T) {
	doc := &Document{SchemaVersion: SchemaVersion + 1}
	data, err := doc.Encode()
	require.NoError(t, err)

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDocument_ValidateRejectsUnknownKind(t *testing.T) {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		Channels:      []ChannelSnapshot{{Name: "weird", Kind: "stage"}},
	}
	assert.ErrorIs(t, doc.Validate(), ErrInvalidDocument)
}

func restoreInto(t *testing.T, target *memGuild, doc *Document) *Report {
	t.Helper()
	r := &Restorer{Src: target, Mut: target, Fetch: target, ChannelWorkers: 4}
	report, err := r.Restore(context.Background(), "g2", doc)
	require.NoError(t, err)
	return report
}

func TestRestore_IntoEmptyGuild(t *testing.T) {
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)

	target := newMemGuild("Target")
	target.blobs["https://cdn.example/party.png"] = []byte{0x89, 0x50}

	report := restoreInto(t, target, doc)

	// Managed role skipped, two created.
	assert.Equal(t, 2, report.RolesCreated)
	assert.Equal(t, 0, report.RolesReused)
	assert.Equal(t, 1, report.CategoriesCreated)
	assert.Equal(t, 2, report.ChannelsCreated)
	assert.Equal(t, 1, report.EmojisCreated)
	assert.Empty(t, report.Errors)

	// Channels ended up under the recreated category.
	catID := target.categories[0].ID
	for _, ch := range target.channels {
		assert.Equal(t, catID, ch.ParentID)
	}

	// Overwrites resolved to the new role IDs.
	ows := target.overwrites[catID]
	require.Len(t, ows, 1)
	assert.Equal(t, "role", ows[0].SubjectType)
	assert.Equal(t, int64(1024), ows[0].Allow)
}

func TestRestore_ReusesRolesByName(t *testing.T) {
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)

	target := newMemGuild("Target")
	target.roles = []guild.Role{{ID: "pre-mods", Name: "Mods"}}
	target.blobs["https://cdn.example/party.png"] = []byte{1}

	report := restoreInto(t, target, doc)

	assert.Equal(t, 1, report.RolesReused)
	assert.Equal(t, 1, report.RolesCreated)
	assert.Equal(t, 1, target.createdRoles)

	// The category overwrite points at the pre-existing role.
	catID := target.categories[0].ID
	require.Len(t, target.overwrites[catID], 1)
	assert.Equal(t, "pre-mods", target.overwrites[catID][0].SubjectID)
}

func TestRestore_PartialChannelFailure(t *testing.T) {
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)

	target := newMemGuild("Target")
	target.failChannel["rules"] = true
	target.blobs["https://cdn.example/party.png"] = []byte{1}

	report := restoreInto(t, target, doc)

	assert.Equal(t, 1, report.ChannelsCreated)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "channel", report.Errors[0].Kind)
	assert.Equal(t, "rules", report.Errors[0].Name)

	// The surviving channel still exists.
	require.Len(t, target.channels, 1)
	assert.Equal(t, "lounge", target.channels[0].Name)
}

func TestRestore_FailedRoleSkipsItsOverwrites(t *testing.T) {
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)

	target := newMemGuild("Target")
	target.failRole["Mods"] = true
	target.blobs["https://cdn.example/party.png"] = []byte{1}

	report := restoreInto(t, target, doc)

	require.NotEmpty(t, report.Errors)
	assert.Equal(t, "role", report.Errors[0].Kind)

	// No overwrite referencing the failed role was applied anywhere.
	for _, ows := range target.overwrites {
		for _, ow := range ows {
			assert.NotEqual(t, int64(1024), ow.Allow)
		}
	}
}

func TestRestore_MissingEmojiBlobIsRecorded(t *testing.T) {
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)

	target := newMemGuild("Target") // no blob registered

	report := restoreInto(t, target, doc)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "emoji", report.Errors[0].Kind)
	assert.Equal(t, 0, report.EmojisCreated)
}

func TestRestore_InvalidDocumentAborts(t *testing.T) {
	target := newMemGuild("Target")
	r := &Restorer{Src: target, Mut: target, Fetch: target, ChannelWorkers: 1}

	_, err := r.Restore(context.Background(), "g2", &Document{
		SchemaVersion: SchemaVersion,
		Channels:      []ChannelSnapshot{{Name: "x", Kind: "bogus"}},
	})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestRestore_Idempotent(t *testing.T) {
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)

	target := newMemGuild("Target")
	target.blobs["https://cdn.example/party.png"] = []byte{1}

	first := restoreInto(t, target, doc)
	require.Equal(t, 2, first.RolesCreated)

	second := restoreInto(t, target, doc)
	assert.Equal(t, 0, second.RolesCreated)
	assert.Equal(t, 2, second.RolesReused)
}

func TestCapture_TimestampIsSet(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	doc, err := Capture(sourceGuild(), "g1")
	require.NoError(t, err)
	assert.True(t, doc.CreatedAt.After(before))
}
