package moderation

import (
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
)

func init() {
	command.Register(&Whitelist{})
}

type Whitelist struct{}

func (c *Whitelist) Name() string        { return "whitelist" }
func (c *Whitelist) Description() string { return "Manage the ban whitelist" }
func (c *Whitelist) Group() string       { return "moderation" }
func (c *Whitelist) RequireAdmin() bool  { return true }

func (c *Whitelist) SlashDefinition() *discordgo.ApplicationCommand {
	userOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Target user",
		Required:    true,
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Protect a user from bans",
				Options: []*discordgo.ApplicationCommandOption{
					userOpt,
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "reason",
						Description: "Why the user is protected",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a user's ban protection",
				Options:     []*discordgo.ApplicationCommandOption{userOpt},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show all whitelisted users",
			},
		},
	}
}

func (c *Whitelist) Run(ctx *command.SlashContext) error {
	sub, opts := command.Subcommand(ctx.Event)
	switch sub {
	case "add":
		return c.add(ctx, command.UserOpt(opts, "user"), command.StringOpt(opts, "reason"))
	case "remove":
		return c.remove(ctx, command.UserOpt(opts, "user"))
	case "list":
		return c.list(ctx)
	}
	return fmt.Errorf("unknown whitelist subcommand")
}

func (c *Whitelist) add(ctx *command.SlashContext, userID, reason string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	if err := deps.Storage.AddToWhitelist(i.GuildID, userID, i.Member.User.ID, reason); err != nil {
		return err
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🛡️ User whitelisted",
		Description: fmt.Sprintf("<@%s> is now protected from manual and automatic bans.", userID),
		Color:       command.ColorGreen,
	}, false)
}

func (c *Whitelist) remove(ctx *command.SlashContext, userID string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	removed, err := deps.Storage.RemoveFromWhitelist(i.GuildID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Not whitelisted",
			Description: fmt.Sprintf("<@%s> was not on the whitelist.", userID),
			Color:       command.ColorRed,
		}, true)
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Whitelist entry removed",
		Description: fmt.Sprintf("<@%s> is no longer protected from bans.", userID),
		Color:       command.ColorGreen,
	}, false)
}

func (c *Whitelist) list(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	entries, err := deps.Storage.Whitelist(i.GuildID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🛡️ Ban whitelist",
			Description: "No users are whitelisted.",
			Color:       command.ColorBlue,
		}, true)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		return entries[ids[a]].AddedAt.After(entries[ids[b]].AddedAt)
	})

	embed := &discordgo.MessageEmbed{
		Title:       "🛡️ Ban whitelist",
		Description: fmt.Sprintf("**%d** protected user(s)", len(entries)),
		Color:       command.ColorBlue,
	}
	for idx, id := range ids {
		if idx == 15 {
			break
		}
		e := entries[id]
		value := fmt.Sprintf("Added by <@%s> on %s", e.AddedBy, e.AddedAt.Format("2006-01-02"))
		if e.Reason != "" {
			value += "\n" + e.Reason
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "<@" + id + ">",
			Value: value,
		})
	}
	return command.RespondEmbed(s, i, embed, true)
}
