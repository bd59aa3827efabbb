package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Telegram    TelegramConfig
	Rewards     RewardConfig
	Schedule    ScheduleConfig
	Server      ServerConfig
	R2          R2Config
}

type TelegramConfig struct {
	BotToken    string
	BotUsername string
	ChannelID   string
	AdminIDs    []int64
}

type RewardConfig struct {
	// Interval is the number of credited recruits per unlock tier.
	Interval       int64
	FallbackAfter  time.Duration
	SessionTimeout time.Duration
	BroadcastDelay time.Duration
}

type ScheduleConfig struct {
	SweepInterval         time.Duration
	FallbackCheckInterval time.Duration
}

type ServerConfig struct {
	Port          string
	AdminAPIToken string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether catalog backups can be uploaded.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// IsAdmin reports whether id is listed in ADMIN_IDS.
func (c TelegramConfig) IsAdmin(id int64) bool {
	for _, admin := range c.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}

// Load reads the configuration from the environment (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error

	interval := getInt64("REWARD_INTERVAL", 2, &errs)
	if interval <= 0 {
		errs = append(errs, fmt.Errorf("REWARD_INTERVAL must be positive, got %d", interval))
	}

	admins, err := parseIDs(getEnv("ADMIN_IDS", ""))
	if err != nil {
		errs = append(errs, fmt.Errorf("ADMIN_IDS: %w", err))
	}

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			BotUsername: strings.TrimPrefix(getEnv("BOT_USERNAME", ""), "@"),
			ChannelID:   getEnv("CHANNEL_ID", ""),
			AdminIDs:    admins,
		},
		Rewards: RewardConfig{
			Interval:       interval,
			FallbackAfter:  getDuration("FALLBACK_AFTER", 48*time.Hour, &errs),
			SessionTimeout: getDuration("BULK_SESSION_TIMEOUT", 5*time.Minute, &errs),
			BroadcastDelay: getDuration("BROADCAST_DELAY", 50*time.Millisecond, &errs),
		},
		Schedule: ScheduleConfig{
			SweepInterval:         getDuration("SWEEP_INTERVAL", 30*time.Minute, &errs),
			FallbackCheckInterval: getDuration("FALLBACK_CHECK_INTERVAL", time.Hour, &errs),
		},
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			AdminAPIToken: getEnv("ADMIN_API_TOKEN", ""),
		},
		R2: R2Config{
			AccountID:       getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
			Bucket:          getEnv("R2_BUCKET_NAME", ""),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is not set"))
	}
	if c.Telegram.ChannelID == "" {
		errs = append(errs, errors.New("CHANNEL_ID is not set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64, errs *[]error) int64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return defaultValue
	}
	return d
}

func parseIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
