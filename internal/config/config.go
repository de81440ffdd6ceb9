package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken      string `env:"DISCORD_TOKEN,required"`
	StoragePath       string `env:"STORAGE_PATH" envDefault:"data/guildkeeper.json"`
	BackupDBPath      string `env:"BACKUP_DB_PATH" envDefault:"data/backups.db"`
	LogFile           string `env:"LOG_FILE"`
	InitSlashCommands bool   `env:"INIT_SLASH_COMMANDS" envDefault:"true"`

	// Anti-spam
	SpamMaxRepeated   int           `env:"SPAM_MAX_REPEATED" envDefault:"3"`
	SpamWindow        time.Duration `env:"SPAM_WINDOW" envDefault:"10s"`
	SpamWarnThreshold int           `env:"SPAM_WARN_THRESHOLD" envDefault:"2"`
	SpamMuteDuration  time.Duration `env:"SPAM_MUTE_DURATION" envDefault:"5m"`
	SpamMaxWarnings   int           `env:"SPAM_MAX_WARNINGS" envDefault:"3"`

	// Anti-raid
	RaidMaxRecentAccounts int           `env:"RAID_MAX_RECENT_ACCOUNTS" envDefault:"5"`
	RaidAccountAgeDays    int           `env:"RAID_ACCOUNT_AGE_DAYS" envDefault:"2"`
	RaidJoinWindow        time.Duration `env:"RAID_JOIN_WINDOW" envDefault:"60s"`
	RaidAutoBan           bool          `env:"RAID_AUTO_BAN" envDefault:"true"`
	RaidLockdownDuration  time.Duration `env:"RAID_LOCKDOWN_DURATION" envDefault:"5m"`

	// Restore pipeline
	RestoreChannelWorkers int           `env:"RESTORE_CHANNEL_WORKERS" envDefault:"4"`
	EmojiFetchTimeout     time.Duration `env:"EMOJI_FETCH_TIMEOUT" envDefault:"15s"`
	ConfirmTimeout        time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"30s"`
}

func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
