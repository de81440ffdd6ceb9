// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	_ "guildkeeper/internal/command/backup"
	_ "guildkeeper/internal/command/bank"
	_ "guildkeeper/internal/command/levels"
	_ "guildkeeper/internal/command/moderation"
	_ "guildkeeper/internal/command/security"
	_ "guildkeeper/internal/command/ticket"

	"guildkeeper/internal/command"
	"guildkeeper/internal/config"
	"guildkeeper/internal/discord"
	"guildkeeper/internal/guild"
	"guildkeeper/internal/logging"
	"guildkeeper/internal/security"
	"guildkeeper/internal/snapshot/store"
	"guildkeeper/internal/storage"
	v "guildkeeper/internal/version"
	"guildkeeper/pkg/jobmgr"
)

func main() {
	log.Printf("[INFO] Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}
	logging.Setup(cfg.LogFile)

	db, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	backups, err := store.Open(cfg.BackupDBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer backups.Close()

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal(err)
	}

	adapter := guild.NewDiscord(dg)
	jobs := jobmgr.NewManager(nil)

	enforcer := security.NewEnforcer(
		security.SpamConfig{
			MaxRepeated:   cfg.SpamMaxRepeated,
			Window:        cfg.SpamWindow,
			WarnThreshold: cfg.SpamWarnThreshold,
			MuteDuration:  cfg.SpamMuteDuration,
			MaxWarnings:   cfg.SpamMaxWarnings,
		},
		security.RaidConfig{
			MaxRecentAccounts: cfg.RaidMaxRecentAccounts,
			AccountAgeDays:    cfg.RaidAccountAgeDays,
			JoinWindow:        cfg.RaidJoinWindow,
			AutoBan:           cfg.RaidAutoBan,
			LockdownDuration:  cfg.RaidLockdownDuration,
		},
		adapter, adapter, adapter, db, jobs,
	)

	deps := &command.Deps{
		Cfg:      cfg,
		Storage:  db,
		Backups:  backups,
		Src:      adapter,
		Mut:      adapter,
		Notify:   adapter,
		Fetch:    guild.NewHTTPFetcher(cfg.EmojiFetchTimeout),
		Enforcer: enforcer,
		Jobs:     jobs,
	}

	go security.RunSweeper(ctx, enforcer, 0)

	bot := discord.NewBot(dg, deps)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] Discord bot exited cleanly")
}
