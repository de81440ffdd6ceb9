package security

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"guildkeeper/internal/guild"
	"guildkeeper/pkg/jobmgr"
)

const (
	colorRed    = 0xE74C3C
	colorGreen  = 0x2ECC71
	colorOrange = 0xE67E22

	mutedRoleName = "Muted"

	// Suspect accounts shown in a raid alert; the full set is still acted on.
	suspectPreviewLimit = 5
)

// EventLog is the persistence the enforcer needs: append-only warning
// and raid logs plus the whitelist check. internal/storage implements it.
type EventLog interface {
	LogWarning(guildID, userID, reason, action string) error
	LogRaid(guildID, raidType string, accounts int, action, details string) error
	IsWhitelisted(guildID, userID string) bool
	// AlertChannel returns the configured alert channel ID, or "" when the
	// guild has none and notices should fall back to a default channel.
	AlertChannel(guildID string) string
}

type MessageEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Username  string
	Content   string
	At        time.Time
}

type JoinEvent struct {
	GuildID          string
	UserID           string
	Username         string
	Bot              bool
	AccountCreatedAt time.Time
	At               time.Time
}

// Enforcer turns detector verdicts into guild mutations and alerts.
// Every outbound call is best-effort at per-entity granularity: a failed
// delete or ban is logged and never takes the event loop down.
type Enforcer struct {
	SpamCfg SpamConfig
	RaidCfg RaidConfig

	Spam *SpamDetector
	Raid *RaidDetector

	Src    guild.DataSource
	Mut    guild.Mutator
	Notify guild.Notifier
	Log    EventLog
	Jobs   *jobmgr.Manager

	mu         sync.Mutex
	mutedRoles map[string]string // guildID -> muted role ID
}

func NewEnforcer(spamCfg SpamConfig, raidCfg RaidConfig, src guild.DataSource, mut guild.Mutator,
	notify guild.Notifier, eventLog EventLog, jobs *jobmgr.Manager) *Enforcer {
	return &Enforcer{
		SpamCfg:    spamCfg,
		RaidCfg:    raidCfg,
		Spam:       NewSpamDetector(spamCfg),
		Raid:       NewRaidDetector(raidCfg),
		Src:        src,
		Mut:        mut,
		Notify:     notify,
		Log:        eventLog,
		Jobs:       jobs,
		mutedRoles: make(map[string]string),
	}
}

// notifyGuild delivers a notice to the guild's configured alert channel,
// falling back to the notifier's own channel choice.
func (e *Enforcer) notifyGuild(guildID string, n guild.Notice) error {
	if ch := e.Log.AlertChannel(guildID); ch != "" {
		if err := e.Notify.Send(ch, n); err == nil {
			return nil
		}
	}
	return e.Notify.SendGuild(guildID, n)
}

// HandleMessage feeds one qualifying message through the spam detector
// and applies the verdict. Bot messages are excluded by the caller.
func (e *Enforcer) HandleMessage(m MessageEvent) {
	v := e.Spam.Observe(m.UserID, m.Content, m.At)
	if v.Action == ActionNone {
		return
	}

	// Best-effort: the notice matters more than the deletion.
	if err := e.Mut.DeleteMessage(m.ChannelID, m.MessageID); err != nil {
		log.Printf("[WARN] Could not delete spam message %s: %v", m.MessageID, err)
	}

	reason := fmt.Sprintf("Spam: %d identical messages", v.Repeated)
	if err := e.Log.LogWarning(m.GuildID, m.UserID, reason, v.Action.String()); err != nil {
		log.Printf("[ERR] Failed to log warning for %s: %v", m.UserID, err)
	}

	notice := guild.Notice{
		Title: "🚨 Spam detected",
		Body:  fmt.Sprintf("<@%s> sent the same message **%d** times.", m.UserID, v.Repeated),
		Color: colorRed,
		Fields: []guild.NoticeField{
			{Name: "Warning", Value: fmt.Sprintf("%d/%d", v.WarningCount, e.SpamCfg.MaxWarnings)},
		},
	}

	switch v.Action {
	case ActionBan:
		if e.Log.IsWhitelisted(m.GuildID, m.UserID) {
			notice.Fields = append(notice.Fields, guild.NoticeField{Name: "Action", Value: "Ban skipped: user is whitelisted"})
			break
		}
		if err := e.Mut.BanMember(m.GuildID, m.UserID, "Repeated spam, too many warnings"); err != nil {
			log.Printf("[ERR] Failed to ban %s: %v", m.UserID, err)
			notice.Fields = append(notice.Fields, guild.NoticeField{Name: "Action", Value: "Ban failed: " + err.Error()})
			break
		}
		notice.Fields = append(notice.Fields, guild.NoticeField{Name: "Action", Value: "🚫 **BANNED** — too many warnings"})

	case ActionMute:
		if err := e.muteMember(m.GuildID, m.UserID); err != nil {
			log.Printf("[ERR] Failed to mute %s: %v", m.UserID, err)
			notice.Fields = append(notice.Fields, guild.NoticeField{Name: "Action", Value: "Mute failed: " + err.Error()})
			break
		}
		notice.Fields = append(notice.Fields, guild.NoticeField{
			Name:  "Action",
			Value: fmt.Sprintf("🔇 **MUTED** for %s", e.SpamCfg.MuteDuration),
		})

	default:
		notice.Fields = append(notice.Fields, guild.NoticeField{Name: "Action", Value: "⚠️ Warning"})
	}

	if err := e.Notify.Send(m.ChannelID, notice); err != nil {
		log.Printf("[WARN] Could not send spam notice in %s: %v", m.ChannelID, err)
	}
}

func (e *Enforcer) muteMember(guildID, userID string) error {
	roleID, err := e.ensureMutedRole(guildID)
	if err != nil {
		return err
	}
	if err := e.Mut.AddRole(guildID, userID, roleID); err != nil {
		return err
	}

	e.Jobs.StartDelayed(unmuteJob(guildID, userID), e.SpamCfg.MuteDuration, func(ctx context.Context) error {
		if err := e.unmute(guildID, userID, false); err != nil {
			return err
		}
		return e.notifyGuild(guildID, guild.Notice{
			Title: "🔊 Mute expired",
			Body:  fmt.Sprintf("<@%s> has been unmuted automatically.", userID),
			Color: colorGreen,
		})
	})
	return nil
}

// ensureMutedRole finds or provisions the guild-wide muted role, denying
// send/speak on every category and channel.
func (e *Enforcer) ensureMutedRole(guildID string) (string, error) {
	e.mu.Lock()
	if id, ok := e.mutedRoles[guildID]; ok {
		e.mu.Unlock()
		return id, nil
	}
	e.mu.Unlock()

	roles, err := e.Src.Roles(guildID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r.Name == mutedRoleName {
			e.cacheMutedRole(guildID, r.ID)
			return r.ID, nil
		}
	}

	created, err := e.Mut.CreateRole(guildID, guild.RoleCreate{Name: mutedRoleName})
	if err != nil {
		return "", err
	}

	deny := guild.Overwrite{
		SubjectID:   created.ID,
		SubjectType: "role",
		Deny:        guild.PermSendMessages | guild.PermSpeak,
	}
	if cats, err := e.Src.Categories(guildID); err == nil {
		for _, c := range cats {
			if err := e.Mut.SetOverwrite(guildID, c.ID, deny); err != nil {
				log.Printf("[WARN] Muted role overwrite on category %s failed: %v", c.Name, err)
			}
		}
	}
	if chans, err := e.Src.Channels(guildID); err == nil {
		for _, ch := range chans {
			if err := e.Mut.SetOverwrite(guildID, ch.ID, deny); err != nil {
				log.Printf("[WARN] Muted role overwrite on channel %s failed: %v", ch.Name, err)
			}
		}
	}

	e.cacheMutedRole(guildID, created.ID)
	return created.ID, nil
}

func (e *Enforcer) cacheMutedRole(guildID, roleID string) {
	e.mu.Lock()
	e.mutedRoles[guildID] = roleID
	e.mu.Unlock()
}

// Unmute is the manual path: it also cancels the pending auto-unmute so
// a stale timer cannot fire after the fact. Idempotent throughout.
func (e *Enforcer) Unmute(guildID, userID string) error {
	return e.unmute(guildID, userID, true)
}

func (e *Enforcer) unmute(guildID, userID string, cancelJob bool) error {
	if cancelJob {
		_ = e.Jobs.Stop(unmuteJob(guildID, userID))
	}
	e.Spam.ClearMute(userID)

	roles, err := e.Src.Roles(guildID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if r.Name == mutedRoleName {
			return e.Mut.RemoveRole(guildID, userID, r.ID)
		}
	}
	return nil // no muted role means nothing to remove
}

// HandleJoin feeds one member join through the raid detector and, when a
// raid trips, locks down, alerts, and optionally mass-bans. Each ban is
// attempted independently.
func (e *Enforcer) HandleJoin(j JoinEvent) {
	if j.Bot {
		return
	}

	age := guild.AccountAgeDays(j.AccountCreatedAt, j.At)
	v := e.Raid.Observe(j.GuildID, JoinRecord{
		UserID:         j.UserID,
		Username:       j.Username,
		JoinedAt:       j.At,
		AccountAgeDays: age,
	})
	if !v.Triggered {
		return
	}

	notice := guild.Notice{
		Title: "🚨 RAID DETECTED",
		Body: fmt.Sprintf("**%d** accounts younger than %d days joined within %s.",
			len(v.Suspects), e.RaidCfg.AccountAgeDays, e.RaidCfg.JoinWindow),
		Color: colorRed,
	}

	preview := ""
	for i, s := range v.Suspects {
		if i == suspectPreviewLimit {
			preview += fmt.Sprintf("… and %d more\n", len(v.Suspects)-suspectPreviewLimit)
			break
		}
		preview += fmt.Sprintf("%d. %s (account age: %dd)\n", i+1, s.Username, s.AccountAgeDays)
	}
	notice.Fields = append(notice.Fields, guild.NoticeField{Name: "📋 Suspect accounts", Value: preview})

	banned := 0
	if e.RaidCfg.AutoBan {
		for _, s := range v.Suspects {
			if e.Log.IsWhitelisted(j.GuildID, s.UserID) {
				continue
			}
			if err := e.Mut.BanMember(j.GuildID, s.UserID, "Anti-raid: suspicious recent account"); err != nil {
				log.Printf("[WARN] Raid auto-ban of %s failed: %v", s.UserID, err)
				continue
			}
			banned++
		}
		notice.Fields = append(notice.Fields, guild.NoticeField{
			Name:  "🚫 Action",
			Value: fmt.Sprintf("**%d** accounts banned automatically", banned),
		})
	}

	action := fmt.Sprintf("auto-ban: %d accounts", banned)
	details := fmt.Sprintf("accounts younger than %d days", e.RaidCfg.AccountAgeDays)
	if err := e.Log.LogRaid(j.GuildID, "recent_accounts", len(v.Suspects), action, details); err != nil {
		log.Printf("[ERR] Failed to log raid event for %s: %v", j.GuildID, err)
	}

	if err := e.notifyGuild(j.GuildID, notice); err != nil {
		log.Printf("[WARN] Could not send raid alert for %s: %v", j.GuildID, err)
	}

	guildID := j.GuildID
	e.Jobs.StartDelayed(lockdownJob(guildID), e.RaidCfg.LockdownDuration, func(ctx context.Context) error {
		e.Raid.EndLockdown(guildID)
		return e.notifyGuild(guildID, guild.Notice{
			Title: "✅ Lockdown lifted",
			Body:  "The anti-raid system is active again.",
			Color: colorGreen,
		})
	})
}

// ClearWarnings resets the in-memory spam counters for a user.
func (e *Enforcer) ClearWarnings(userID string) {
	e.Spam.ClearWarnings(userID)
}

func unmuteJob(guildID, userID string) string {
	return "unmute:" + guildID + ":" + userID
}

func lockdownJob(guildID string) string {
	return "lockdown:" + guildID
}
