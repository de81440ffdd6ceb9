// Package moderation provides the manual ban/unban commands and the ban
// whitelist that shields trusted users from both manual and automatic
// bans.
package moderation

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
)

func init() {
	command.Register(&Ban{})
	command.Register(&Unban{})
}

type Ban struct{}

func (c *Ban) Name() string        { return "ban" }
func (c *Ban) Description() string { return "Ban a user from the guild" }
func (c *Ban) Group() string       { return "moderation" }
func (c *Ban) RequireAdmin() bool  { return true }

func (c *Ban) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "User to ban",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Reason for the ban",
			},
		},
	}
}

func (c *Ban) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	opts := i.ApplicationCommandData().Options
	userID := command.UserOpt(opts, "user")
	reason := command.StringOpt(opts, "reason")
	if reason == "" {
		reason = "No reason given"
	}

	if userID == i.Member.User.ID {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Nope",
			Description: "You cannot ban yourself.",
			Color:       command.ColorRed,
		}, true)
	}
	if deps.Storage.IsWhitelisted(i.GuildID, userID) {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🛡️ User is whitelisted",
			Description: fmt.Sprintf("<@%s> is on the ban whitelist. Remove them first with `/whitelist remove`.", userID),
			Color:       command.ColorOrange,
		}, true)
	}

	if err := deps.Mut.BanMember(i.GuildID, userID, reason); err != nil {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Ban failed",
			Description: err.Error(),
			Color:       command.ColorRed,
		}, true)
	}

	if err := deps.Storage.LogModeratorWarning(i.GuildID, userID, reason, "ban", i.Member.User.ID); err != nil {
		return err
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🚫 User banned",
		Description: fmt.Sprintf("<@%s> was banned by <@%s>.", userID, i.Member.User.ID),
		Color:       command.ColorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
		},
	}, false)
}

type Unban struct{}

func (c *Unban) Name() string        { return "unban" }
func (c *Unban) Description() string { return "Lift a user's ban" }
func (c *Unban) Group() string       { return "moderation" }
func (c *Unban) RequireAdmin() bool  { return true }

func (c *Unban) SlashDefinition() *discordgo.ApplicationCommand {
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

func (c *Unban) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	userID := command.StringOpt(i.ApplicationCommandData().Options, "user_id")

	if err := deps.Mut.UnbanMember(i.GuildID, userID); err != nil {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Unban failed",
			Description: err.Error(),
			Color:       command.ColorRed,
		}, true)
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ User unbanned",
		Description: fmt.Sprintf("<@%s> can join the guild again.", userID),
		Color:       command.ColorGreen,
	}, false)
}
