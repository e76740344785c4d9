package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config is the server configuration. Environment variables set the base
// values, flags override them.
type Config struct {
	Addr          string `env:"RETRO_ADDR" envDefault:":8080"`
	PublicBaseURL string `env:"RETRO_PUBLIC_URL" envDefault:"http://localhost:8080"`

	LogLevel  string `env:"RETRO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"RETRO_LOG_FORMAT" envDefault:"json"`

	CatalogURL     string        `env:"RETRO_CATALOG_URL"`
	CatalogTimeout time.Duration `env:"RETRO_CATALOG_TIMEOUT" envDefault:"5s"`
	TemplatesFile  string        `env:"RETRO_TEMPLATES_FILE"`

	DefaultVotingLimit int  `env:"RETRO_DEFAULT_VOTING_LIMIT" envDefault:"5"`
	StrictStageGate    bool `env:"RETRO_STRICT_STAGE_GATE" envDefault:"false"`

	RoomIdleTTL    time.Duration `env:"RETRO_ROOM_IDLE_TTL" envDefault:"2h"`
	ReaperInterval time.Duration `env:"RETRO_REAPER_INTERVAL" envDefault:"1m"`

	AllowedOrigins []string      `env:"RETRO_ALLOWED_ORIGINS" envSeparator:","`
	OutboundQueue  int           `env:"RETRO_OUTBOUND_QUEUE" envDefault:"256"`
	ReadLimit      int64         `env:"RETRO_READ_LIMIT" envDefault:"65536"`
	PingInterval   time.Duration `env:"RETRO_PING_INTERVAL" envDefault:"25s"`
	PongWait       time.Duration `env:"RETRO_PONG_WAIT" envDefault:"60s"`
	WriteWait      time.Duration `env:"RETRO_WRITE_WAIT" envDefault:"10s"`
	MessageRate    float64       `env:"RETRO_MESSAGE_RATE" envDefault:"20"`
	MessageBurst   int           `env:"RETRO_MESSAGE_BURST" envDefault:"40"`

	ShutdownTimeout time.Duration `env:"RETRO_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ErrHelp is returned by Load when -h or --help was given
var ErrHelp = pflag.ErrHelp

// Load reads an optional .env file, then the environment, then args
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := pflag.NewFlagSet("retroboard", pflag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.PublicBaseURL, "public-url", cfg.PublicBaseURL, "base URL used in share links")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json or console)")
	fs.StringVar(&cfg.CatalogURL, "catalog-url", cfg.CatalogURL, "session catalog base URL; empty auto-creates rooms")
	fs.StringVar(&cfg.TemplatesFile, "templates", cfg.TemplatesFile, "YAML board templates file")
	fs.IntVar(&cfg.DefaultVotingLimit, "voting-limit", cfg.DefaultVotingLimit, "votes per participant when the session sets none")
	fs.BoolVar(&cfg.StrictStageGate, "strict-stage-gate", cfg.StrictStageGate, "require everyone done before leaving brainstorm or vote")
	fs.DurationVar(&cfg.RoomIdleTTL, "room-idle-ttl", cfg.RoomIdleTTL, "evict rooms idle for this long (0 disables)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origin", cfg.AllowedOrigins, "allowed WebSocket origins (repeatable)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: addr is required")
	case c.DefaultVotingLimit <= 0:
		return errors.New("config: voting limit must be positive")
	case c.OutboundQueue <= 0:
		return errors.New("config: outbound queue must be positive")
	case c.ReadLimit <= 0:
		return errors.New("config: read limit must be positive")
	case c.PingInterval <= 0 || c.PongWait <= c.PingInterval:
		return errors.New("config: pong wait must exceed a positive ping interval")
	case c.MessageRate <= 0 || c.MessageBurst <= 0:
		return errors.New("config: message rate and burst must be positive")
	case c.RoomIdleTTL < 0:
		return errors.New("config: room idle ttl must not be negative")
	}
	return nil
}
