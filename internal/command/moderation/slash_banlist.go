package moderation

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
	"guildkeeper/internal/guild"
)

func init() {
	command.Register(&Banlist{})
	command.Register(&Baninfo{})
}

const banlistPageLimit = 25

type Banlist struct{}

func (c *Banlist) Name() string        { return "banlist" }
func (c *Banlist) Description() string { return "List banned users" }
func (c *Banlist) Group() string       { return "moderation" }
func (c *Banlist) RequireAdmin() bool  { return true }

func (c *Banlist) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *Banlist) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	bans, err := guild.AllBans(deps.Src, i.GuildID)
	if err != nil {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Could not fetch the ban list",
			Description: err.Error(),
			Color:       command.ColorRed,
		}, true)
	}
	if len(bans) == 0 {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🔨 Ban list",
			Description: "Nobody is banned.",
			Color:       command.ColorGreen,
		}, true)
	}

	var b strings.Builder
	for n, ban := range bans {
		if n == banlistPageLimit {
			fmt.Fprintf(&b, "… and %d more", len(bans)-banlistPageLimit)
			break
		}
		reason := ban.Reason
		if reason == "" {
			reason = "no reason recorded"
		}
		fmt.Fprintf(&b, "**%s** (`%s`) — %s\n", ban.Username, ban.UserID, reason)
	}

	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🔨 Ban list — %d banned", len(bans)),
		Description: b.String(),
		Color:       command.ColorOrange,
	}, true)
}

type Baninfo struct{}

func (c *Baninfo) Name() string        { return "baninfo" }
func (c *Baninfo) Description() string { return "Show the ban record of one user" }
func (c *Baninfo) Group() string       { return "moderation" }
func (c *Baninfo) RequireAdmin() bool  { return true }

func (c *Baninfo) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "user_id",
				Description: "ID of the banned user",
				Required:    true,
			},
		},
	}
}

func (c *Baninfo) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	userID := command.StringOpt(i.ApplicationCommandData().Options, "user_id")

	bans, err := guild.AllBans(deps.Src, i.GuildID)
	if err != nil {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Could not fetch the ban list",
			Description: err.Error(),
			Color:       command.ColorRed,
		}, true)
	}

	for _, ban := range bans {
		if ban.UserID != userID {
			continue
		}
		reason := ban.Reason
		if reason == "" {
			reason = "no reason recorded"
		}
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🔨 Ban record",
			Description: fmt.Sprintf("**%s** (`%s`)", ban.Username, ban.UserID),
			Color:       command.ColorOrange,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Reason", Value: reason},
			},
		}, true)
	}

	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "❔ Not banned",
		Description: fmt.Sprintf("No ban record for `%s`.", userID),
		Color:       command.ColorBlue,
	}, true)
}
