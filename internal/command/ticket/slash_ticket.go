// Package ticket provides the support ticket panel: a button-gated flow
// that opens one private channel per request under a configured category.
package ticket

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
)

func init() {
	command.Register(&Ticket{})
}

type Ticket struct{}

func (c *Ticket) Name() string        { return "ticket" }
func (c *Ticket) Description() string { return "Support ticket panel and ticket management" }
func (c *Ticket) Group() string       { return "ticket" }
func (c *Ticket) RequireAdmin() bool  { return true }

func (c *Ticket) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "panel",
				Description: "Post the ticket panel in this channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "category",
						Description: "Category ticket channels are created under",
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildCategory,
						},
						Required: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "close",
				Description: "Close the current ticket channel",
			},
		},
	}
}

func (c *Ticket) Run(ctx *command.SlashContext) error {
	sub, opts := command.Subcommand(ctx.Event)
	switch sub {
	case "panel":
		return c.panel(ctx, command.StringOpt(opts, "category"))
	case "close":
		return c.close(ctx)
	}
	return fmt.Errorf("unknown ticket subcommand")
}

func (c *Ticket) panel(ctx *command.SlashContext, categoryID string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	if err := deps.Storage.SetTicketCategory(i.GuildID, categoryID); err != nil {
		return err
	}

	if _, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🎫 Support",
			Description: "Need help from the staff? Click the button below to open a private ticket.",
			Color:       command.ColorBlue,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Open a ticket",
					Style:    discordgo.PrimaryButton,
					CustomID: "ticket:open",
					Emoji:    &discordgo.ComponentEmoji{Name: "🎫"},
				},
			}},
		},
	}); err != nil {
		return err
	}
	return command.Respond(s, i, "Ticket panel posted.", true)
}

// Component handles the panel's open button.
func (c *Ticket) Component(ctx *command.ComponentContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	if i.MessageComponentData().CustomID != "ticket:open" {
		return nil
	}
	userID := i.Member.User.ID

	categoryID, err := deps.Storage.GetTicketCategory(i.GuildID)
	if err != nil {
		return err
	}

	n, err := deps.Storage.NextTicketNumber(i.GuildID)
	if err != nil {
		return err
	}

	ch, err := s.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:     fmt.Sprintf("ticket-%04d", n),
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: categoryID,
		Topic:    fmt.Sprintf("Support ticket for <@%s>", userID),
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				// @everyone
				ID:   i.GuildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			{
				ID:    userID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
			},
			{
				ID:    s.State.User.ID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
			},
		},
	})
	if err != nil {
		return command.Respond(s, i, "Could not create the ticket channel: "+err.Error(), true)
	}

	if _, err := s.ChannelMessageSendEmbed(ch.ID, &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🎫 Ticket #%04d", n),
		Description: fmt.Sprintf("<@%s>, describe your issue here. A staff member will be with you shortly.\n"+
			"Staff can close this ticket with `/ticket close`.", userID),
		Color: command.ColorGreen,
	}); err != nil {
		return err
	}
	return command.Respond(s, i, fmt.Sprintf("Your ticket is ready: <#%s>", ch.ID), true)
}

func (c *Ticket) close(ctx *command.SlashContext) error {
	s, i := ctx.Session, ctx.Event

	ch, err := s.Channel(i.ChannelID)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(ch.Name, "ticket-") {
		return command.Respond(s, i, "This is not a ticket channel.", true)
	}

	if err := command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🔒 Ticket closed",
		Description: "This channel will be deleted.",
		Color:       command.ColorRed,
	}, false); err != nil {
		return err
	}
	_, err = s.ChannelDelete(i.ChannelID)
	return err
}
