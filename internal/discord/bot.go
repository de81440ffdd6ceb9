// Package discord owns the gateway session: event wiring, slash command
// registration, and dispatch into the command registry.
package discord

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
)

type Bot struct {
	dg   *discordgo.Session
	deps *command.Deps
}

// NewBot wraps an unopened session; Run does the rest.
func NewBot(dg *discordgo.Session, deps *command.Deps) *Bot {
	return &Bot{dg: dg, deps: deps}
}

// Run opens the gateway session and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	dg := b.dg

	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onGuildMemberAdd)
	dg.AddHandler(b.onInteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")
	return nil
}

// Session exposes the raw gateway session for the adapter layer.
func (b *Bot) Session() *discordgo.Session {
	return b.dg
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentMessageContent
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	botInfo, err := s.User("@me")
	if err != nil {
		log.Println("[WARN] Error retrieving bot user:", err)
		return
	}

	if b.deps.Cfg.InitSlashCommands {
		for _, g := range r.Guilds {
			if err := b.registerCommands(g.ID); err != nil {
				log.Println("[ERR] Error registering slash commands for guild", g.ID, ":", err)
			}
		}
	} else {
		log.Println("[INFO] Registering slash commands skipped")
	}

	log.Printf("[INFO] ✅ Discord bot %v is running.", botInfo.Username)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("[INFO] Bot added to guild: %s (%s)", g.Guild.ID, g.Guild.Name)

	if err := b.registerCommands(g.Guild.ID); err != nil {
		log.Printf("[ERR] Failed to register commands for new guild %s: %v", g.Guild.ID, err)
	}
}

// registerCommands overwrites the guild's slash command set with the
// registry's definitions in one call.
func (b *Bot) registerCommands(guildID string) error {
	appID := b.dg.State.User.ID
	if appID == "" {
		user, err := b.dg.User("@me")
		if err != nil {
			return err
		}
		appID = user.ID
	}

	var defs []*discordgo.ApplicationCommand
	for _, cmd := range command.All() {
		if def := cmd.SlashDefinition(); def != nil {
			defs = append(defs, def)
		}
	}

	created, err := b.dg.ApplicationCommandBulkOverwrite(appID, guildID, defs)
	if err != nil {
		return err
	}
	log.Printf("[DONE] [%s] Registered %d slash commands", guildID, len(created))
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		cmdName := i.ApplicationCommandData().Name
		cmd, ok := command.Get(cmdName)
		if !ok {
			log.Printf("[WARN] Unknown command: %s", cmdName)
			return
		}

		if cmd.RequireAdmin() && !command.IsAdmin(i) {
			if err := command.Respond(s, i, "This command requires administrator rights.", true); err != nil {
				log.Println("[ERR] Error sending permission refusal:", err)
			}
			return
		}

		ctx := &command.SlashContext{Session: s, Event: i, Deps: b.deps}
		if err := cmd.Run(ctx); err != nil {
			log.Printf("[ERR] Error running slash command %s: %v", cmdName, err)
			respondError(s, i, err)
		}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		name, _, ok := strings.Cut(customID, ":")
		if !ok {
			return
		}
		cmd, found := command.Get(name)
		if !found {
			log.Printf("[WARN] No matching command for component customID: %s", customID)
			return
		}
		handler, isHandler := cmd.(command.ComponentHandler)
		if !isHandler {
			log.Printf("[WARN] Command %s has no component handler", name)
			return
		}

		ctx := &command.ComponentContext{Session: s, Event: i, Deps: b.deps}
		if err := handler.Component(ctx); err != nil {
			log.Printf("[ERR] Error running component handler %s: %v", name, err)
			respondError(s, i, err)
		}
	}
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	rerr := command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("Error running command: %v", err),
		Color:       command.ColorRed,
	}, true)
	if rerr != nil {
		log.Println("[WARN] Could not deliver error response:", rerr)
	}
}
