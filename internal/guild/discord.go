package guild

import (
	"encoding/base64"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Discord implements DataSource, Mutator and Notifier on a live session.
type Discord struct {
	s *discordgo.Session
}

func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{s: s}
}

func (d *Discord) Guild(guildID string) (*Metadata, error) {
	g, err := d.s.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch guild %s: %w", guildID, err)
	}
	return &Metadata{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		IconURL:     g.IconURL(""),
		BannerURL:   g.BannerURL(""),
		OwnerID:     g.OwnerID,
	}, nil
}

func (d *Discord) Roles(guildID string) ([]Role, error) {
	roles, err := d.s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch roles for %s: %w", guildID, err)
	}

	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		iconURL := ""
		if r.Icon != "" {
			iconURL = fmt.Sprintf("https://cdn.discordapp.com/role-icons/%s/%s.png", r.ID, r.Icon)
		}
		out = append(out, Role{
			ID:           r.ID,
			Name:         r.Name,
			Color:        r.Color,
			Hoist:        r.Hoist,
			Mentionable:  r.Mentionable,
			Managed:      r.Managed,
			Position:     r.Position,
			Permissions:  r.Permissions,
			IconURL:      iconURL,
			UnicodeEmoji: r.UnicodeEmoji,
		})
	}
	return out, nil
}

func (d *Discord) Categories(guildID string) ([]Category, error) {
	channels, err := d.s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch channels for %s: %w", guildID, err)
	}

	var out []Category
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildCategory {
			continue
		}
		out = append(out, Category{
			ID:         ch.ID,
			Name:       ch.Name,
			Position:   ch.Position,
			Overwrites: convertOverwrites(ch.PermissionOverwrites),
		})
	}
	return out, nil
}

func (d *Discord) Channels(guildID string) ([]Channel, error) {
	channels, err := d.s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch channels for %s: %w", guildID, err)
	}

	var out []Channel
	for _, ch := range channels {
		kind, ok := channelKind(ch.Type)
		if !ok {
			continue
		}
		out = append(out, Channel{
			ID:         ch.ID,
			Name:       ch.Name,
			Kind:       kind,
			Position:   ch.Position,
			ParentID:   ch.ParentID,
			Topic:      ch.Topic,
			NSFW:       ch.NSFW,
			Slowmode:   ch.RateLimitPerUser,
			Bitrate:    ch.Bitrate,
			UserLimit:  ch.UserLimit,
			Overwrites: convertOverwrites(ch.PermissionOverwrites),
		})
	}
	return out, nil
}

func (d *Discord) Emojis(guildID string) ([]Emoji, error) {
	emojis, err := d.s.GuildEmojis(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch emojis for %s: %w", guildID, err)
	}

	out := make([]Emoji, 0, len(emojis))
	for _, e := range emojis {
		url := discordgo.EndpointEmoji(e.ID)
		if e.Animated {
			url = discordgo.EndpointEmojiAnimated(e.ID)
		}
		out = append(out, Emoji{
			ID:            e.ID,
			Name:          e.Name,
			URL:           url,
			Animated:      e.Animated,
			Managed:       e.Managed,
			RequireColons: e.RequireColons,
			Roles:         e.Roles,
		})
	}
	return out, nil
}

func (d *Discord) Bans(guildID string, limit int, afterID string) ([]Ban, error) {
	bans, err := d.s.GuildBans(guildID, limit, "", afterID)
	if err != nil {
		return nil, fmt.Errorf("fetch bans for %s: %w", guildID, err)
	}

	out := make([]Ban, 0, len(bans))
	for _, b := range bans {
		if b.User == nil {
			continue
		}
		out = append(out, Ban{
			UserID:   b.User.ID,
			Username: b.User.Username,
			Reason:   b.Reason,
		})
	}
	return out, nil
}

func (d *Discord) Members(guildID string, limit int, afterID string) ([]Member, error) {
	members, err := d.s.GuildMembers(guildID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch members for %s: %w", guildID, err)
	}

	out := make([]Member, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		out = append(out, Member{
			UserID:   m.User.ID,
			Username: m.User.Username,
			Bot:      m.User.Bot,
			JoinedAt: m.JoinedAt,
		})
	}
	return out, nil
}

func (d *Discord) CreateRole(guildID string, rc RoleCreate) (*Role, error) {
	params := &discordgo.RoleParams{
		Name:        rc.Name,
		Color:       &rc.Color,
		Hoist:       &rc.Hoist,
		Permissions: &rc.Permissions,
		Mentionable: &rc.Mentionable,
	}
	r, err := d.s.GuildRoleCreate(guildID, params)
	if err != nil {
		return nil, fmt.Errorf("create role %q: %w", rc.Name, err)
	}
	return &Role{ID: r.ID, Name: r.Name, Color: r.Color, Hoist: r.Hoist,
		Mentionable: r.Mentionable, Position: r.Position, Permissions: r.Permissions}, nil
}

func (d *Discord) SetRoleEmoji(guildID, roleID, emoji string) error {
	_, err := d.s.GuildRoleEdit(guildID, roleID, &discordgo.RoleParams{UnicodeEmoji: &emoji})
	if err != nil {
		return fmt.Errorf("set emoji on role %s: %w", roleID, err)
	}
	return nil
}

func (d *Discord) CreateCategory(guildID, name string) (*Category, error) {
	ch, err := d.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	})
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return &Category{ID: ch.ID, Name: ch.Name, Position: ch.Position}, nil
}

func (d *Discord) CreateChannel(guildID string, cc ChannelCreate) (*Channel, error) {
	chType, ok := channelType(cc.Kind)
	if !ok {
		return nil, fmt.Errorf("create channel %q: unknown kind %q", cc.Name, cc.Kind)
	}
	ch, err := d.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:             cc.Name,
		Type:             chType,
		Topic:            cc.Topic,
		Bitrate:          cc.Bitrate,
		UserLimit:        cc.UserLimit,
		RateLimitPerUser: cc.Slowmode,
		ParentID:         cc.ParentID,
		NSFW:             cc.NSFW,
	})
	if err != nil {
		return nil, fmt.Errorf("create channel %q: %w", cc.Name, err)
	}
	return &Channel{ID: ch.ID, Name: ch.Name, Kind: cc.Kind, ParentID: ch.ParentID}, nil
}

func (d *Discord) SetOverwrite(guildID, targetID string, ow Overwrite) error {
	owType := discordgo.PermissionOverwriteTypeRole
	if ow.SubjectType == "member" {
		owType = discordgo.PermissionOverwriteTypeMember
	}
	if err := d.s.ChannelPermissionSet(targetID, ow.SubjectID, owType, ow.Allow, ow.Deny); err != nil {
		return fmt.Errorf("set overwrite on %s for %s: %w", targetID, ow.SubjectID, err)
	}
	return nil
}

func (d *Discord) CreateEmoji(guildID, name string, animated bool, image []byte) error {
	mime := "image/png"
	if animated {
		mime = "image/gif"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))
	if _, err := d.s.GuildEmojiCreate(guildID, &discordgo.EmojiParams{Name: name, Image: dataURI}); err != nil {
		return fmt.Errorf("create emoji %q: %w", name, err)
	}
	return nil
}

func (d *Discord) BanMember(guildID, userID, reason string) error {
	if err := d.s.GuildBanCreateWithReason(guildID, userID, reason, 0); err != nil {
		return fmt.Errorf("ban %s: %w", userID, err)
	}
	return nil
}

func (d *Discord) UnbanMember(guildID, userID string) error {
	if err := d.s.GuildBanDelete(guildID, userID); err != nil {
		return fmt.Errorf("unban %s: %w", userID, err)
	}
	return nil
}

func (d *Discord) AddRole(guildID, userID, roleID string) error {
	if err := d.s.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		return fmt.Errorf("add role %s to %s: %w", roleID, userID, err)
	}
	return nil
}

func (d *Discord) RemoveRole(guildID, userID, roleID string) error {
	if err := d.s.GuildMemberRoleRemove(guildID, userID, roleID); err != nil {
		return fmt.Errorf("remove role %s from %s: %w", roleID, userID, err)
	}
	return nil
}

func (d *Discord) DeleteMessage(channelID, messageID string) error {
	if err := d.s.ChannelMessageDelete(channelID, messageID); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

func (d *Discord) Send(channelID string, n Notice) error {
	if _, err := d.s.ChannelMessageSendEmbed(channelID, noticeEmbed(n)); err != nil {
		return fmt.Errorf("send notice to %s: %w", channelID, err)
	}
	return nil
}

// SendGuild posts to the guild's system channel, falling back to the first
// text channel the bot can see.
func (d *Discord) SendGuild(guildID string, n Notice) error {
	if g, err := d.s.Guild(guildID); err == nil && g.SystemChannelID != "" {
		if err := d.Send(g.SystemChannelID, n); err == nil {
			return nil
		}
	}

	channels, err := d.s.GuildChannels(guildID)
	if err != nil {
		return fmt.Errorf("send guild notice to %s: %w", guildID, err)
	}
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if err := d.Send(ch.ID, n); err == nil {
			return nil
		}
	}
	return fmt.Errorf("send guild notice to %s: no writable text channel", guildID)
}

func noticeEmbed(n Notice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
		Color:       n.Color,
	}
	for _, f := range n.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  f.Name,
			Value: f.Value,
		})
	}
	return embed
}

func convertOverwrites(ows []*discordgo.PermissionOverwrite) []Overwrite {
	out := make([]Overwrite, 0, len(ows))
	for _, ow := range ows {
		subjectType := "role"
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			subjectType = "member"
		}
		out = append(out, Overwrite{
			SubjectID:   ow.ID,
			SubjectType: subjectType,
			Allow:       ow.Allow,
			Deny:        ow.Deny,
		})
	}
	return out
}

func channelKind(t discordgo.ChannelType) (string, bool) {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return KindText, true
	case discordgo.ChannelTypeGuildVoice:
		return KindVoice, true
	case discordgo.ChannelTypeGuildNews:
		return KindNews, true
	case discordgo.ChannelTypeGuildForum:
		return KindForum, true
	}
	return "", false
}

func channelType(kind string) (discordgo.ChannelType, bool) {
	switch kind {
	case KindText:
		return discordgo.ChannelTypeGuildText, true
	case KindVoice:
		return discordgo.ChannelTypeGuildVoice, true
	case KindNews:
		return discordgo.ChannelTypeGuildNews, true
	case KindForum:
		return discordgo.ChannelTypeGuildForum, true
	}
	return 0, false
}
