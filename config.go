package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/policy"
)

// Config is the full engine configuration. Start from DefaultConfig, override
// fields, and hand the result to Builder.WithConfig. A Config is copied at
// Build time and treated as immutable afterwards.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Policy   PolicyConfig
	TOTP     TOTPConfig
	Activity ActivityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the HS256 signing secrets and token horizons. Access and
// refresh tokens are signed with different secrets so one kind can never be
// replayed as the other.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id cost parameters used for both passwords
// and recovery codes. Memory is in KiB.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig gates new passwords.
type PolicyConfig struct {
	MinPasswordLength int
	RecoveryCodeCount int
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls enrollment URIs and code acceptance. Codes are always
// six digits over a 30 second step with SHA1.
type TOTPConfig struct {
	Issuer string
	Skew   uint
}

/*
====================================
ACTIVITY CONFIG
====================================
*/

// ActivityConfig controls the in-process last-seen cache. A zero
// SweepInterval disables the background janitor; SweepActivity can still be
// called by the host.
type ActivityConfig struct {
	SweepInterval time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. Secrets are left empty and must
// be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Policy: PolicyConfig{
			MinPasswordLength: policy.DefaultMinPasswordLen,
			RecoveryCodeCount: 5,
		},
		TOTP: TOTPConfig{
			Issuer: "authcore",
			Skew:   1,
		},
		Activity: ActivityConfig{
			SweepInterval: 0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

const minSecretBytes = 32

// Validate reports the first invalid field. Build calls it; hosts loading
// configuration from the environment can call it early to fail fast.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if len(c.JWT.AccessSecret) < minSecretBytes {
		return errors.New("JWT AccessSecret must be at least 32 bytes")
	}
	if len(c.JWT.RefreshSecret) < minSecretBytes {
		return errors.New("JWT RefreshSecret must be at least 32 bytes")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KiB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Policy
	if c.Policy.MinPasswordLength < policy.DefaultMinPasswordLen {
		return errors.New("Policy MinPasswordLength must be >= 8")
	}
	if c.Policy.RecoveryCodeCount <= 0 {
		return errors.New("Policy RecoveryCodeCount must be > 0")
	}

	// TOTP
	if c.TOTP.Issuer == "" {
		return errors.New("TOTP Issuer is required")
	}
	if c.TOTP.Skew > 2 {
		return errors.New("TOTP Skew must be <= 2")
	}

	// Activity
	if c.Activity.SweepInterval < 0 {
		return errors.New("Activity SweepInterval must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
