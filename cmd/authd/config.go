package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrEthical07/authcore"
)

// config is read from AUTHCORE_* environment variables.
type config struct {
	Addr            string        `env:"AUTHCORE_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"AUTHCORE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"AUTHCORE_LOG_LEVEL" envDefault:"info"`

	// Store is memory, sqlite or postgres.
	Store string `env:"AUTHCORE_STORE" envDefault:"sqlite"`
	DSN   string `env:"AUTHCORE_DSN" envDefault:"file:authcore.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"`

	// Sessions is store (same backend as users) or redis.
	Sessions    string `env:"AUTHCORE_SESSIONS" envDefault:"store"`
	RedisAddr   string `env:"AUTHCORE_REDIS_ADDR"`
	RedisPrefix string `env:"AUTHCORE_REDIS_PREFIX" envDefault:"authcore"`

	AccessSecret  string        `env:"AUTHCORE_ACCESS_SECRET,required,notEmpty,unset"`
	RefreshSecret string        `env:"AUTHCORE_REFRESH_SECRET,required,notEmpty,unset"`
	AccessTTL     time.Duration `env:"AUTHCORE_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"AUTHCORE_REFRESH_TTL" envDefault:"168h"`
	TokenIssuer   string        `env:"AUTHCORE_TOKEN_ISSUER" envDefault:"authcore"`

	TOTPIssuer string `env:"AUTHCORE_TOTP_ISSUER" envDefault:"authcore"`
	TOTPSkew   uint   `env:"AUTHCORE_TOTP_SKEW" envDefault:"1"`

	MinPasswordLength int    `env:"AUTHCORE_MIN_PASSWORD_LENGTH" envDefault:"8"`
	ArgonMemory       uint32 `env:"AUTHCORE_ARGON_MEMORY_KIB" envDefault:"65536"`
	ArgonTime         uint32 `env:"AUTHCORE_ARGON_TIME" envDefault:"3"`
	ArgonParallelism  uint8  `env:"AUTHCORE_ARGON_PARALLELISM" envDefault:"2"`

	StrictSessions bool          `env:"AUTHCORE_STRICT_SESSIONS" envDefault:"false"`
	SweepInterval  time.Duration `env:"AUTHCORE_ACTIVITY_SWEEP" envDefault:"5m"`
	AuditLog       bool          `env:"AUTHCORE_AUDIT_LOG" envDefault:"true"`
	Metrics        bool          `env:"AUTHCORE_METRICS" envDefault:"true"`
	OTelInterval   time.Duration `env:"AUTHCORE_OTEL_INTERVAL" envDefault:"0s"`
	// OTelEndpoint is an OTLP/HTTP metrics URL; empty writes to stdout.
	OTelEndpoint string `env:"AUTHCORE_OTEL_ENDPOINT"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	switch c.Store {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("AUTHCORE_STORE must be memory, sqlite or postgres, got %q", c.Store)
	}
	switch c.Sessions {
	case "store", "redis":
	default:
		return fmt.Errorf("AUTHCORE_SESSIONS must be store or redis, got %q", c.Sessions)
	}
	if c.Store == "postgres" && c.DSN == "" {
		return errors.New("AUTHCORE_DSN is required for postgres")
	}
	if c.OTelInterval < 0 {
		return errors.New("AUTHCORE_OTEL_INTERVAL must be >= 0")
	}
	return nil
}

// engineConfig maps the environment onto the library configuration. The
// result still goes through Config.Validate at Build.
func (c config) engineConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(c.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.RefreshSecret)
	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL
	cfg.JWT.Issuer = c.TokenIssuer
	cfg.TOTP.Issuer = c.TOTPIssuer
	cfg.TOTP.Skew = c.TOTPSkew
	cfg.Policy.MinPasswordLength = c.MinPasswordLength
	cfg.Password.Memory = c.ArgonMemory
	cfg.Password.Time = c.ArgonTime
	cfg.Password.Parallelism = c.ArgonParallelism
	cfg.Activity.SweepInterval = c.SweepInterval
	cfg.Audit.Enabled = c.AuditLog
	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics
	return cfg
}

func (c config) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
