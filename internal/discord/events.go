package discord

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/security"
)

// Message XP is a small random grant so identical activity does not
// produce identical totals.
const (
	xpMin = 15
	xpMax = 25
)

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}
	if m.GuildID == "" {
		return
	}

	b.deps.Enforcer.HandleMessage(security.MessageEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		Content:   m.Content,
		At:        time.Now(),
	})

	xp := xpMin + rand.Intn(xpMax-xpMin+1)
	newLevel, err := b.deps.Storage.AwardMessageXP(m.GuildID, m.Author.ID, len(m.Content), xp)
	if err != nil {
		log.Printf("[WARN] Failed to award XP to %s: %v", m.Author.ID, err)
		return
	}
	if newLevel > 1 {
		if _, err := s.ChannelMessageSendEmbed(m.ChannelID, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("🎉 <@%s> reached level **%d**!", m.Author.ID, newLevel),
			Color:       0x2ECC71,
		}); err != nil {
			log.Printf("[WARN] Could not announce level-up for %s: %v", m.Author.ID, err)
		}
	}
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	createdAt, err := discordgo.SnowflakeTimestamp(m.User.ID)
	if err != nil {
		log.Printf("[WARN] Could not derive account age for %s: %v", m.User.ID, err)
		return
	}

	b.deps.Enforcer.HandleJoin(security.JoinEvent{
		GuildID:          m.GuildID,
		UserID:           m.User.ID,
		Username:         m.User.Username,
		Bot:              m.User.Bot,
		AccountCreatedAt: createdAt,
		At:               time.Now(),
	})
}
