// Package security provides the moderator-facing surface over the spam
// and raid detectors: status, warning history, and manual resets.
package security

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
)

func init() {
	command.Register(&Security{})
}

type Security struct{}

func (c *Security) Name() string        { return "security" }
func (c *Security) Description() string { return "Spam and raid protection status" }
func (c *Security) Group() string       { return "security" }
func (c *Security) RequireAdmin() bool  { return true }

func (c *Security) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Show detector configuration and live state",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "raids",
				Description: "Show the recent raid event log",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "alerts",
				Description: "Route security alerts to a channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Channel for spam and raid alerts",
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
						},
						Required: true,
					},
				},
			},
		},
	}
}

func (c *Security) Run(ctx *command.SlashContext) error {
	sub, opts := command.Subcommand(ctx.Event)
	switch sub {
	case "raids":
		return c.raids(ctx)
	case "alerts":
		return c.alerts(ctx, command.StringOpt(opts, "channel"))
	default:
		return c.status(ctx)
	}
}

func (c *Security) alerts(ctx *command.SlashContext, channelID string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	if err := deps.Storage.SetAlertChannel(i.GuildID, channelID); err != nil {
		return err
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🔔 Alert channel set",
		Description: fmt.Sprintf("Security alerts will be posted in <#%s>.", channelID),
		Color:       command.ColorGreen,
	}, false)
}

func (c *Security) status(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	e := deps.Enforcer

	tracked, muted := e.Spam.Stats(time.Now())

	lockdown := "Inactive"
	if e.Raid.LockdownActive(i.GuildID) {
		lockdown = "🔒 **ACTIVE**"
	}

	embed := &discordgo.MessageEmbed{
		Title: "🛡️ Security status",
		Color: command.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Anti-spam",
				Value: fmt.Sprintf("Trigger: %d identical messages / %s\nWarnings before mute: %d, before ban: %d\nMute duration: %s",
					e.SpamCfg.MaxRepeated, e.SpamCfg.Window,
					e.SpamCfg.WarnThreshold, e.SpamCfg.MaxWarnings, e.SpamCfg.MuteDuration),
			},
			{
				Name: "Anti-raid",
				Value: fmt.Sprintf("Trigger: %d accounts under %d days old / %s\nAuto-ban: %t, lockdown: %s",
					e.RaidCfg.MaxRecentAccounts, e.RaidCfg.AccountAgeDays, e.RaidCfg.JoinWindow,
					e.RaidCfg.AutoBan, e.RaidCfg.LockdownDuration),
			},
			{Name: "Tracked users", Value: fmt.Sprint(tracked), Inline: true},
			{Name: "Currently muted", Value: fmt.Sprint(muted), Inline: true},
			{Name: "Lockdown", Value: lockdown, Inline: true},
		},
	}
	return command.RespondEmbed(s, i, embed, true)
}

func (c *Security) raids(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	events, err := deps.Storage.RaidEvents(i.GuildID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🛡️ Raid log",
			Description: "No raid events recorded.",
			Color:       command.ColorGreen,
		}, true)
	}

	embed := &discordgo.MessageEmbed{
		Title: "🛡️ Raid log",
		Color: command.ColorOrange,
	}
	for idx, ev := range events {
		if idx == 10 {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s — %s", ev.At.Format("2006-01-02 15:04"), ev.Type),
			Value: fmt.Sprintf("%d accounts, action: %s\n%s",
				ev.Accounts, ev.Action, ev.Details),
		})
	}
	return command.RespondEmbed(s, i, embed, true)
}
