package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Web Server
	WebBind         string        `env:"WEB_BIND" envDefault:"0.0.0.0:3000"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	StaticDir       string        `env:"STATIC_DIR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Rooms
	DefaultRoom      string `env:"DEFAULT_ROOM" envDefault:"warsan305"`
	RosterFile       string `env:"ROSTER_FILE"`
	ActivityLogLimit int    `env:"ACTIVITY_LOG_LIMIT" envDefault:"50"`
	SnapshotActivity int    `env:"SNAPSHOT_ACTIVITY" envDefault:"10"`

	// Backup archive: postgres://... or sqlite:<path>
	DatabaseURL string `env:"DATABASE_URL"`

	// Discord activity mirror
	DiscordToken     string `env:"DISCORD_TOKEN"`
	DiscordChannelID string `env:"DISCORD_CHANNEL_ID"`
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.DefaultRoom = strings.TrimSpace(c.DefaultRoom)
	if c.DefaultRoom == "" {
		return fmt.Errorf("DEFAULT_ROOM must not be empty")
	}
	if c.ActivityLogLimit <= 0 {
		return fmt.Errorf("ACTIVITY_LOG_LIMIT must be positive")
	}
	if c.SnapshotActivity < 0 || c.SnapshotActivity > c.ActivityLogLimit {
		return fmt.Errorf("SNAPSHOT_ACTIVITY must be between 0 and ACTIVITY_LOG_LIMIT")
	}
	if (c.DiscordToken == "") != (c.DiscordChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	return nil
}

// DiscordEnabled reports whether activity should be mirrored to Discord.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}
