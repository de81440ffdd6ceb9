package snapshot

import (
	"fmt"
	"sort"
	"time"

	"guildkeeper/internal/guild"
)

// Capture walks the live guild and produces a snapshot document. It is a
// pure read; any transport error from the data source is propagated.
//
// The implicit @everyone role is excluded. Permission overwrites are
// re-keyed from the live role IDs to role names so a later restore can
// resolve them against roles it created itself; member overwrites and
// overwrites pointing at roles that no longer exist are dropped.
func Capture(src guild.DataSource, guildID string) (*Document, error) {
	meta, err := src.Guild(guildID)
	if err != nil {
		return nil, err
	}

	roles, err := src.Roles(guildID)
	if err != nil {
		return nil, err
	}
	categories, err := src.Categories(guildID)
	if err != nil {
		return nil, err
	}
	channels, err := src.Channels(guildID)
	if err != nil {
		return nil, err
	}
	emojis, err := src.Emojis(guildID)
	if err != nil {
		return nil, err
	}

	roleNames := make(map[string]string, len(roles)) // role ID -> name
	doc := &Document{
		ServerInfo: GuildInfo{
			ID:          meta.ID,
			Name:        meta.Name,
			Description: meta.Description,
			IconURL:     meta.IconURL,
			BannerURL:   meta.BannerURL,
		},
		Roles:         make([]RoleSnapshot, 0, len(roles)),
		Categories:    make([]CategorySnapshot, 0, len(categories)),
		Channels:      make([]ChannelSnapshot, 0, len(channels)),
		Emojis:        make([]EmojiSnapshot, 0, len(emojis)),
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
	}

	for _, r := range roles {
		if r.ID == guildID { // @everyone shares the guild's ID
			continue
		}
		roleNames[r.ID] = r.Name
		doc.Roles = append(doc.Roles, RoleSnapshot{
			Name:         r.Name,
			Color:        r.Color,
			Hoist:        r.Hoist,
			Mentionable:  r.Mentionable,
			Position:     r.Position,
			Permissions:  r.Permissions,
			IconURL:      r.IconURL,
			UnicodeEmoji: r.UnicodeEmoji,
			Managed:      r.Managed,
			Tags: RoleTags{
				BotID:             r.Tags.BotID,
				IntegrationID:     r.Tags.IntegrationID,
				PremiumSubscriber: r.Tags.PremiumSubscriber,
			},
		})
	}
	sort.SliceStable(doc.Roles, func(i, j int) bool {
		return doc.Roles[i].Position < doc.Roles[j].Position
	})

	categoryNames := make(map[string]string, len(categories)) // category ID -> name
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
		doc.Categories = append(doc.Categories, CategorySnapshot{
			Name:       c.Name,
			Position:   c.Position,
			Overwrites: captureOverwrites(c.Overwrites, roleNames),
		})
	}
	sort.SliceStable(doc.Categories, func(i, j int) bool {
		return doc.Categories[i].Position < doc.Categories[j].Position
	})

	for _, ch := range channels {
		doc.Channels = append(doc.Channels, ChannelSnapshot{
			Name:           ch.Name,
			Kind:           ch.Kind,
			Position:       ch.Position,
			ParentCategory: categoryNames[ch.ParentID],
			Topic:          ch.Topic,
			Slowmode:       ch.Slowmode,
			NSFW:           ch.NSFW,
			Bitrate:        ch.Bitrate,
			UserLimit:      ch.UserLimit,
			Overwrites:     captureOverwrites(ch.Overwrites, roleNames),
		})
	}
	sort.SliceStable(doc.Channels, func(i, j int) bool {
		return doc.Channels[i].Position < doc.Channels[j].Position
	})

	for _, e := range emojis {
		restrictions := make([]string, 0, len(e.Roles))
		for _, roleID := range e.Roles {
			if name, ok := roleNames[roleID]; ok {
				restrictions = append(restrictions, name)
			}
		}
		doc.Emojis = append(doc.Emojis, EmojiSnapshot{
			Name:          e.Name,
			SourceURL:     e.URL,
			Animated:      e.Animated,
			Managed:       e.Managed,
			RequireColons: e.RequireColons,
			Roles:         restrictions,
		})
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("capture of %s produced invalid document: %w", guildID, err)
	}
	return doc, nil
}

func captureOverwrites(ows []guild.Overwrite, roleNames map[string]string) map[string]OverwritePair {
	out := make(map[string]OverwritePair, len(ows))
	for _, ow := range ows {
		if ow.SubjectType != "role" {
			continue
		}
		name, ok := roleNames[ow.SubjectID]
		if !ok {
			continue
		}
		out[name] = OverwritePair{Allow: ow.Allow, Deny: ow.Deny}
	}
	return out
}
