// Package bank provides the per-guild virtual currency commands:
// balances, transfers, and a cooldown-gated casino.
package bank

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/command"
	"guildkeeper/internal/storage"
)

const (
	casinoCooldown = 5 * time.Minute
	casinoWinOdds  = 45 // percent
	maxCasinoBet   = 500
)

func init() {
	command.Register(&Bank{})
}

type Bank struct{}

func (c *Bank) Name() string        { return "bank" }
func (c *Bank) Description() string { return "Guild currency: balance, transfers, casino" }
func (c *Bank) Group() string       { return "bank" }
func (c *Bank) RequireAdmin() bool  { return false }

func (c *Bank) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "balance",
				Description: "Show your balance",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "pay",
				Description: "Send coins to another user",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "Recipient",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "amount",
						Description: "Amount to send",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "casino",
				Description: "Gamble some coins (5 minute cooldown)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "bet",
						Description: "Amount to bet",
						Required:    true,
					},
				},
			},
		},
	}
}

func (c *Bank) Run(ctx *command.SlashContext) error {
	sub, opts := command.Subcommand(ctx.Event)
	switch sub {
	case "balance":
		return c.balance(ctx)
	case "pay":
		return c.pay(ctx, command.UserOpt(opts, "user"), command.IntOpt(opts, "amount"))
	case "casino":
		return c.casino(ctx, command.IntOpt(opts, "bet"))
	}
	return fmt.Errorf("unknown bank subcommand")
}

func (c *Bank) balance(ctx *command.SlashContext) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps

	balance, err := deps.Storage.Balance(i.GuildID, i.Member.User.ID)
	if err != nil {
		return err
	}
	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "💰 Balance",
		Description: fmt.Sprintf("<@%s> has **%d** coins.", i.Member.User.ID, balance),
		Color:       command.ColorBlue,
	}, true)
}

func (c *Bank) pay(ctx *command.SlashContext, toID string, amount int64) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	fromID := i.Member.User.ID

	if toID == fromID {
		return command.Respond(s, i, "You cannot pay yourself.", true)
	}
	if amount <= 0 {
		return command.Respond(s, i, "The amount must be positive.", true)
	}

	err := deps.Storage.Transfer(i.GuildID, fromID, toID, amount)
	if errors.Is(err, storage.ErrInsufficientFunds) {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Insufficient funds",
			Description: err.Error(),
			Color:       command.ColorRed,
		}, true)
	}
	if err != nil {
		return err
	}

	return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "💸 Payment sent",
		Description: fmt.Sprintf("<@%s> sent **%d** coins to <@%s>.", fromID, amount, toID),
		Color:       command.ColorGreen,
	}, false)
}

func (c *Bank) casino(ctx *command.SlashContext, bet int64) error {
	s, i, deps := ctx.Session, ctx.Event, ctx.Deps
	userID := i.Member.User.ID

	if bet <= 0 || bet > maxCasinoBet {
		return command.Respond(s, i, fmt.Sprintf("Bets must be between 1 and %d coins.", maxCasinoBet), true)
	}

	left, err := deps.Storage.CasinoCooldownLeft(i.GuildID, userID, casinoCooldown)
	if err != nil {
		return err
	}
	if left > 0 {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🎰 Slow down",
			Description: fmt.Sprintf("The casino reopens for you in **%s**.", left.Round(time.Second)),
			Color:       command.ColorOrange,
		}, true)
	}

	win := rand.Intn(100) < casinoWinOdds
	delta := -bet
	if win {
		delta = bet
	}

	balance, err := deps.Storage.Adjust(i.GuildID, userID, delta)
	if errors.Is(err, storage.ErrInsufficientFunds) {
		return command.RespondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Insufficient funds",
			Description: err.Error(),
			Color:       command.ColorRed,
		}, true)
	}
	if err != nil {
		return err
	}
	if err := deps.Storage.StampCasino(i.GuildID, userID); err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎰 You lost",
		Description: fmt.Sprintf("<@%s> lost **%d** coins. Balance: **%d**.", userID, bet, balance),
		Color:       command.ColorRed,
	}
	if win {
		embed.Title = "🎰 You won!"
		embed.Description = fmt.Sprintf("<@%s> won **%d** coins. Balance: **%d**.", userID, bet, balance)
		embed.Color = command.ColorGreen
	}
	return command.RespondEmbed(s, i, embed, false)
}
