package security

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
)

func init() {
	command.Register(&Warnings{})
	command.Register(&ClearWarnings{})
	command.Register(&Unmute{})
}

type Warnings struct{}

func (c *Warnings) Name() string        { return "warnings" }
func (c *Warnings) Description() string { return "Show a user's warning history" }
func (c *Warnings) Group() string       { return "security" }
func (c *Warnings) RequireAdmin() bool  { return true }

func (c *Warnings) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "User to inspect",
				Required:    true,
			},
		},
	}
}

func (c *Warnings) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	userID := command.UserOpt(i.ApplicationCommandData().Options, "user")

	warnings, err := deps.Storage.UserWarnings(i.GuildID, userID)
	if err != nil {
		return err
	}
	live := deps.Enforcer.Spam.Warnings(userID)

	if len(warnings) == 0 && live == 0 {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "📋 Warnings",
			Description: fmt.Sprintf("<@%s> has a clean record.", userID),
			Color:       command.ColorGreen,
		}, true)
	}

	embed := &discordgo.MessageEmbed{
		Title: "📋 Warnings",
		Description: fmt.Sprintf("<@%s> — **%d** recorded, **%d** active spam warning(s)",
			userID, len(warnings), live),
		Color: command.ColorOrange,
	}
	for idx, w := range warnings {
		if idx == 10 {
			break
		}
		value := fmt.Sprintf("%s → %s", w.Reason, w.Action)
		if w.ModeratorID != "" {
			value += fmt.Sprintf(" (by <@%s>)", w.ModeratorID)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  w.At.Format("2006-01-02 15:04"),
			Value: value,
		})
	}
	return command.RespondEmbed(s, i, embed, true)
}

type ClearWarnings struct{}

func (c *ClearWarnings) Name() string        { return "clearwarnings" }
func (c *ClearWarnings) Description() string { return "Clear a user's warnings" }
func (c *ClearWarnings) Group() string       { return "security" }
func (c *ClearWarnings) RequireAdmin() bool  { return true }

func (c *ClearWarnings) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "User whose warnings to clear",
				Required:    true,
			},
		},
	}
}

func (c *ClearWarnings) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	userID := command.UserOpt(i.ApplicationCommandData().Options, "user")

	removed, err := deps.Storage.ClearUserWarnings(i.GuildID, userID)
	if err != nil {
		return err
	}
	deps.Enforcer.ClearWarnings(userID)

	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Warnings cleared",
		Description: fmt.Sprintf("Removed **%d** warning(s) for <@%s> and reset the live counters.", removed, userID),
		Color:       command.ColorGreen,
	}, false)
}

type Unmute struct{}

func (c *Unmute) Name() string        { return "unmute" }
func (c *Unmute) Description() string { return "Unmute a user ahead of schedule" }
func (c *Unmute) Group() string       { return "security" }
func (c *Unmute) RequireAdmin() bool  { return true }

func (c *Unmute) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "User to unmute",
				Required:    true,
			},
		},
	}
}

func (c *Unmute) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	userID := command.UserOpt(i.ApplicationCommandData().Options, "user")

	if err := deps.Enforcer.Unmute(i.GuildID, userID); err != nil {
		return err
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🔊 Unmuted",
		Description: fmt.Sprintf("<@%s> has been unmuted.", userID),
		Color:       command.ColorGreen,
	}, false)
}
