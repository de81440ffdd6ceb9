// Package command defines the slash-command contract and the registry
// commands add themselves to from their package init.
package command

import (
	"guildkeeper/internal/config"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/security"
	"guildkeeper/internal/snapshot/store"
	"guildkeeper/internal/storage"
	"guildkeeper/pkg/jobmgr"

	"github.com/bwmarrin/discordgo"
)

// Deps is everything a command may need; the bot wires it once at startup.
type Deps struct {
	Cfg      *config.Config
	Storage  *storage.Storage
	Backups  *store.Store
	Src      guild.DataSource
	Mut      guild.Mutator
	Notify   guild.Notifier
	Fetch    guild.BlobFetcher
	Enforcer *security.Enforcer
	Jobs     *jobmgr.Manager
}

type Command interface {
	Name() string
	Description() string
	Group() string
	RequireAdmin() bool
	SlashDefinition() *discordgo.ApplicationCommand
	Run(ctx *SlashContext) error
}

// ComponentHandler is implemented by commands that own message
// components (buttons). CustomIDs are routed by "<command-name>:" prefix.
type ComponentHandler interface {
	Component(ctx *ComponentContext) error
}

type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Deps    *Deps
}

type ComponentContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Deps    *Deps
}
