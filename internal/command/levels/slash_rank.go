// Package levels provides the message-XP progression commands.
package levels

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
	"guildkeeper/internal/storage"
)

func init() {
	command.Register(&Rank{})
	command.Register(&Leaderboard{})
}

type Rank struct{}

func (c *Rank) Name() string        { return "rank" }
func (c *Rank) Description() string { return "Show a user's level and XP" }
func (c *Rank) Group() string       { return "levels" }
func (c *Rank) RequireAdmin() bool  { return false }

func (c *Rank) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "User to inspect (defaults to you)",
			},
		},
	}
}

func (c *Rank) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	userID := command.UserOpt(i.ApplicationCommandData().Options, "user")
	if userID == "" {
		userID = i.Member.User.ID
	}

	rec, err := deps.Storage.UserLevel(i.GuildID, userID)
	if err != nil {
		return err
	}

	// XP still needed for the next level, from the inverse of the level curve.
	next := (rec.Level + 1) * (rec.Level + 1) * 100
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "📈 Rank",
		Color: command.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: "<@" + userID + ">", Inline: true},
			{Name: "Level", Value: fmt.Sprint(rec.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d / %d", rec.XP, next), Inline: true},
			{Name: "Messages", Value: fmt.Sprint(rec.Messages), Inline: true},
		},
	}, true)
}

type Leaderboard struct{}

func (c *Leaderboard) Name() string        { return "leaderboard" }
func (c *Leaderboard) Description() string { return "Show the guild's top users by XP" }
func (c *Leaderboard) Group() string       { return "levels" }
func (c *Leaderboard) RequireAdmin() bool  { return false }

func (c *Leaderboard) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *Leaderboard) Run(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	top, err := deps.Storage.Leaderboard(i.GuildID, 10)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🏆 Leaderboard",
			Description: "Nobody has earned XP yet.",
			Color:       command.ColorBlue,
		}, true)
	}

	medals := []string{"🥇", "🥈", "🥉"}
	desc := ""
	for idx, entry := range top {
		marker := fmt.Sprintf("**%d.**", idx+1)
		if idx < len(medals) {
			marker = medals[idx]
		}
		desc += fmt.Sprintf("%s <@%s> — level %d, %d XP\n",
			marker, entry.UserID, displayLevel(entry), entry.XP)
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🏆 Leaderboard",
		Description: desc,
		Color:       command.ColorBlue,
	}, false)
}

func displayLevel(e storage.LeaderboardEntry) int {
	if e.Level == 0 {
		return storage.LevelForXP(e.XP)
	}
	return e.Level
}
