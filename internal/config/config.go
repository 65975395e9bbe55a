// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
)

// Store backends selectable through UNO_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is the process configuration shared by cmd/uno and cmd/historian.
type Config struct {
	LogLevel string `env:"UNO_LOG_LEVEL" envDefault:"info"`
	Store    string `env:"UNO_STORE" envDefault:"memory"`

	RedisAddr   string `env:"REDIS_ADDR"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"UNO_SQLITE_PATH" envDefault:"uno.db"`
	SessionTTL  int    `env:"UNO_SESSION_TTL_SEC" envDefault:"86400"`
	QueueName   string `env:"HISTORIAN_QUEUE_NAME" envDefault:"uno_actions"`

	MinPlayers    int   `env:"UNO_MIN_PLAYERS" envDefault:"2"`
	MaxPlayers    int   `env:"UNO_MAX_PLAYERS" envDefault:"4"`
	HandSize      int   `env:"UNO_HAND_SIZE" envDefault:"7"`
	EndTurnOnDraw bool  `env:"UNO_END_TURN_ON_DRAW" envDefault:"false"`
	ShuffleSeed   int64 `env:"UNO_SHUFFLE_SEED"`

	HistorianBatchSize   int `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushMs     int `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
	InactivityTimeoutSec int `env:"UNO_INACTIVITY_TIMEOUT_SEC" envDefault:"600"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected store has what it needs to connect.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("UNO_STORE=redis requires REDIS_ADDR")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("UNO_STORE=postgres requires DATABASE_URL")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("UNO_STORE=sqlite requires UNO_SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.HistorianBatchSize < 1 || c.HistorianFlushMs < 1 {
		return fmt.Errorf("historian batch size and flush interval must be positive")
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

// Rules builds the table rules for new sessions.
func (c Config) Rules() (game.Rules, error) {
	r := game.Rules{
		MinPlayers:      c.MinPlayers,
		MaxPlayers:      c.MaxPlayers,
		InitialHandSize: c.HandSize,
		EndTurnOnDraw:   c.EndTurnOnDraw,
	}
	if err := r.Validate(); err != nil {
		return game.Rules{}, err
	}
	return r, nil
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger returns a logrus logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.HistorianFlushMs) * time.Millisecond
}

func (c Config) InactivityTimeout() time.Duration {
	return time.Duration(c.InactivityTimeoutSec) * time.Second
}

func (c Config) SessionExpiry() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}
