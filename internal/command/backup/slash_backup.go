// Package backup provides the /backup command group: capture the current
// guild structure into a named snapshot, list and inspect snapshots, and
// restore or delete them behind a button confirmation.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
	"guildkeeper/internal/snapshot"
	"guildkeeper/internal/snapshot/store"
)

func init() {
	command.Register(&Backup{})
}

type pendingConfirm struct {
	action    string // "load" or "delete"
	name      string
	userID    string
	expiresAt time.Time
}

type Backup struct {
	mu      sync.Mutex
	pending map[string]pendingConfirm // key = action + ":" + name
}

func (c *Backup) Name() string        { return "backup" }
func (c *Backup) Description() string { return "Manage guild structure backups" }
func (c *Backup) Group() string       { return "backup" }
func (c *Backup) RequireAdmin() bool  { return true }

func (c *Backup) SlashDefinition() *discordgo.ApplicationCommand {
	nameOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "name",
			Description: desc,
			Required:    true,
		}
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Capture the guild structure into a named backup",
				Options: []*discordgo.ApplicationCommandOption{
					nameOpt("Backup name"),
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "description",
						Description: "Optional description",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "load",
				Description: "Restore the guild structure from a backup",
				Options:     []*discordgo.ApplicationCommandOption{nameOpt("Backup to restore")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List backups for this guild",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "info",
				Description: "Show details of a backup",
				Options:     []*discordgo.ApplicationCommandOption{nameOpt("Backup name")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete a backup",
				Options:     []*discordgo.ApplicationCommandOption{nameOpt("Backup to delete")},
			},
		},
	}
}

func (c *Backup) Run(ctx *command.SlashContext) error {
	sub, opts := command.Subcommand(ctx.Event)
	switch sub {
	case "create":
		return c.create(ctx, command.StringOpt(opts, "name"), command.StringOpt(opts, "description"))
	case "load":
		return c.confirm(ctx, "load", command.StringOpt(opts, "name"),
			"⚠️ Restore confirmation",
			"This will recreate roles, categories, channels and emojis in this guild.")
	case "list":
		return c.list(ctx)
	case "info":
		return c.info(ctx, command.StringOpt(opts, "name"))
	case "delete":
		return c.confirm(ctx, "delete", command.StringOpt(opts, "name"),
			"⚠️ Delete confirmation",
			"This is irreversible.")
	}
	return fmt.Errorf("unknown backup subcommand")
}

func (c *Backup) create(ctx *command.SlashContext, name, description string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	if _, err := deps.Backups.Info(name); err == nil {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "⚠️ Backup exists",
			Description: fmt.Sprintf("A backup named **%s** already exists. Delete it first.", name),
			Color:       command.ColorOrange,
		}, true)
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	doc, err := snapshot.Capture(deps.Src, i.GuildID)
	if err != nil {
		return followUpError(s, i, "Backup failed", err)
	}

	if err := deps.Backups.Put(name, doc, store.Record{
		GuildID:     i.GuildID,
		GuildName:   doc.ServerInfo.Name,
		CreatedBy:   i.Member.User.ID,
		Description: description,
	}); err != nil {
		return followUpError(s, i, "Backup failed", err)
	}

	_, err = s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "✅ Backup created",
			Description: fmt.Sprintf("Backup **%s** saved.", name),
			Color:       command.ColorGreen,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Roles", Value: fmt.Sprint(len(doc.Roles)), Inline: true},
				{Name: "Categories", Value: fmt.Sprint(len(doc.Categories)), Inline: true},
				{Name: "Channels", Value: fmt.Sprint(len(doc.Channels)), Inline: true},
				{Name: "Emojis", Value: fmt.Sprint(len(doc.Emojis)), Inline: true},
			},
		}},
	})
	return err
}

// confirm posts the confirmation embed with confirm/cancel buttons and
// parks the request until a button click or the timeout.
func (c *Backup) confirm(ctx *command.SlashContext, action, name, title, warning string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	rec, err := deps.Backups.Info(name)
	if errors.Is(err, store.ErrNotFound) {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Backup not found",
			Description: fmt.Sprintf("No backup named **%s**.", name),
			Color:       command.ColorRed,
		}, true)
	}
	if err != nil {
		return err
	}

	key := action + ":" + name
	c.mu.Lock()
	if c.pending == nil {
		c.pending = map[string]pendingConfirm{}
	}
	c.pending[key] = pendingConfirm{
		action:    action,
		name:      name,
		userID:    i.Member.User.ID,
		expiresAt: time.Now().Add(deps.Cfg.ConfirmTimeout),
	}
	c.mu.Unlock()

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       title,
				Description: fmt.Sprintf("Backup **%s** (%s). %s", name, rec.GuildName, warning),
				Color:       command.ColorOrange,
				Footer: &discordgo.MessageEmbedFooter{
					Text: fmt.Sprintf("Expires in %s", deps.Cfg.ConfirmTimeout),
				},
			}},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Confirm", Style: discordgo.DangerButton, CustomID: "backup:confirm:" + key},
					discordgo.Button{Label: "Cancel", Style: discordgo.SecondaryButton, CustomID: "backup:cancel:" + key},
				}},
			},
		},
	})
}

// Component handles the confirm/cancel buttons.
func (c *Backup) Component(ctx *command.ComponentContext) error {
	s, i := ctx.Session, ctx.Event
	customID := i.MessageComponentData().CustomID

	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 {
		return nil
	}
	verb, key := parts[1], parts[2]

	c.mu.Lock()
	p, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok || time.Now().After(p.expiresAt) {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "⏰ Confirmation expired",
			Description: "Nothing was changed. Run the command again.",
			Color:       command.ColorOrange,
		}, true)
	}
	if i.Member.User.ID != p.userID {
		// Put it back; someone else clicked.
		c.mu.Lock()
		c.pending[key] = p
		c.mu.Unlock()
		return command.Respond(s, i, "Only the requester can confirm this.", true)
	}

	if verb == "cancel" {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Cancelled",
			Description: "Nothing was changed.",
			Color:       command.ColorRed,
		}, false)
	}

	switch p.action {
	case "load":
		return c.runRestore(ctx, p.name)
	case "delete":
		return c.runDelete(ctx, p.name)
	}
	return nil
}

func (c *Backup) runRestore(ctx *command.ComponentContext, name string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	doc, err := deps.Backups.Get(name)
	if err != nil {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Restore failed",
			Description: err.Error(),
			Color:       command.ColorRed,
		}, false)
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	guildID := i.GuildID
	go func() {
		restorer := &snapshot.Restorer{
			Src:            deps.Src,
			Mut:            deps.Mut,
			Fetch:          deps.Fetch,
			ChannelWorkers: deps.Cfg.RestoreChannelWorkers,
		}
		rctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		report, err := restorer.Restore(rctx, guildID, doc)
		if err != nil {
			if _, ferr := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
				Embeds: []*discordgo.MessageEmbed{{
					Title:       "❌ Restore failed",
					Description: err.Error(),
					Color:       command.ColorRed,
				}},
			}); ferr != nil {
				log.Printf("[ERR] Failed to deliver restore failure notice: %v", ferr)
			}
			return
		}

		embed := &discordgo.MessageEmbed{
			Title:       "✅ Restore finished",
			Description: fmt.Sprintf("Guild restored from **%s**.", name),
			Color:       command.ColorGreen,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Roles", Value: fmt.Sprintf("%d created, %d reused", report.RolesCreated, report.RolesReused), Inline: true},
				{Name: "Categories", Value: fmt.Sprint(report.CategoriesCreated), Inline: true},
				{Name: "Channels", Value: fmt.Sprint(report.ChannelsCreated), Inline: true},
				{Name: "Emojis", Value: fmt.Sprint(report.EmojisCreated), Inline: true},
			},
		}
		if len(report.Errors) > 0 {
			embed.Title = "⚠️ Restore finished with errors"
			embed.Color = command.ColorOrange
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("Failures (%d)", len(report.Errors)),
				Value: formatEntityErrors(report.Errors),
			})
		}
		if _, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{embed},
		}); err != nil {
			log.Printf("[ERR] Failed to deliver restore report: %v", err)
		}
	}()
	return nil
}

func (c *Backup) runDelete(ctx *command.ComponentContext, name string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	deleted, err := deps.Backups.Delete(name)
	if err != nil {
		return err
	}
	if !deleted {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Backup not found",
			Description: fmt.Sprintf("No backup named **%s**.", name),
			Color:       command.ColorRed,
		}, true)
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Backup deleted",
		Description: fmt.Sprintf("Backup **%s** removed.", name),
		Color:       command.ColorGreen,
	}, false)
}

func (c *Backup) list(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	records, err := deps.Backups.List(i.GuildID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "📋 Backups",
			Description: "No backups found for this guild.",
			Color:       command.ColorBlue,
		}, false)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📋 Backups",
		Description: fmt.Sprintf("**%d** backup(s) for this guild", len(records)),
		Color:       command.ColorBlue,
	}
	for idx, rec := range records {
		if idx == 10 {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "💾 " + rec.Name,
			Value: fmt.Sprintf("Created by <@%s> on %s\n%s",
				rec.CreatedBy, rec.CreatedAt.Format("2006-01-02"), orNone(rec.Description)),
		})
	}
	return command.RespondEmbed(s, i, embed, false)
}

func (c *Backup) info(ctx *command.SlashContext, name string) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	rec, err := deps.Backups.Info(name)
	if errors.Is(err, store.ErrNotFound) {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Backup not found",
			Description: fmt.Sprintf("No backup named **%s**.", name),
			Color:       command.ColorRed,
		}, true)
	}
	if err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       "💾 " + rec.Name,
		Description: orNone(rec.Description),
		Color:       command.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Guild", Value: rec.GuildName, Inline: true},
			{Name: "Created", Value: rec.CreatedAt.Format(time.RFC1123), Inline: true},
			{Name: "Created by", Value: "<@" + rec.CreatedBy + ">", Inline: true},
		},
	}
	if doc, err := deps.Backups.Get(name); err == nil {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Roles", Value: fmt.Sprint(len(doc.Roles)), Inline: true},
			&discordgo.MessageEmbedField{Name: "Categories", Value: fmt.Sprint(len(doc.Categories)), Inline: true},
			&discordgo.MessageEmbedField{Name: "Channels", Value: fmt.Sprint(len(doc.Channels)), Inline: true},
			&discordgo.MessageEmbedField{Name: "Emojis", Value: fmt.Sprint(len(doc.Emojis)), Inline: true},
		)
	}
	return command.RespondEmbed(s, i, embed, false)
}

func followUpError(s *discordgo.Session, i *discordgo.InteractionCreate, title string, err error) error {
	_, ferr := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "❌ " + title,
			Description: err.Error(),
			Color:       command.ColorRed,
		}},
	})
	return ferr
}

func formatEntityErrors(errs []snapshot.EntityError) string {
	var b strings.Builder
	for idx, e := range errs {
		if idx == 10 {
			fmt.Fprintf(&b, "… and %d more", len(errs)-10)
			break
		}
		fmt.Fprintf(&b, "• %s\n", e.Error())
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "No description"
	}
	return s
}
