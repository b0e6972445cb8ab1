package authguard

import (
	"bytes"
	"errors"
	"time"
)

// Config carries every tunable of the Engine. Build a Config by hand, start
// from [defaultConfig] via [New], or load one with [FromEnv]. Validate is
// called during [Builder.Build]; a Config that passed validation is treated
// as immutable afterwards.
type Config struct {
	Token     TokenConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Password  PasswordConfig
	MFA       MFAConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the two HS256 signing contexts. Access and refresh
// tokens use distinct secrets and distinct issuer/audience pairs so one kind
// can never verify as the other.
type TokenConfig struct {
	AccessSecret    []byte
	RefreshSecret   []byte
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	AccessIssuer    string
	AccessAudience  string
	RefreshIssuer   string
	RefreshAudience string
	Leeway          time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig bounds the Redis-backed session store.
type SessionConfig struct {
	// StoreTimeout caps every Redis round trip made for session state.
	StoreTimeout time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the login throttle.
type RateLimitConfig struct {
	MaxLoginAttempts int
	AttemptWindow    time.Duration
	LockoutDuration  time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes the bcrypt hasher and the password policy.
type PasswordConfig struct {
	BcryptCost int
	MinLength  int
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig enables TOTP verification. Issuer is required when Enabled and
// names the account in authenticator apps. Period is in seconds.
type MFAConfig struct {
	Enabled   bool
	Issuer    string
	Digits    int
	Period    int
	Window    int
	Algorithm string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters and the optional
// verification latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the documented defaults. Token secrets start empty
// and must be set before [Config.Validate] passes.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      7 * 24 * time.Hour,
			AccessIssuer:    "authguard",
			AccessAudience:  "access",
			RefreshIssuer:   "authguard",
			RefreshAudience: "refresh",
			Leeway:          0,
		},
		Session: SessionConfig{
			StoreTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxLoginAttempts: 5,
			AttemptWindow:    15 * time.Minute,
			LockoutDuration:  15 * time.Minute,
		},
		Password: PasswordConfig{
			BcryptCost: 12,
			MinLength:  8,
		},
		MFA: MFAConfig{
			Enabled:   false,
			Digits:    6,
			Period:    30,
			Window:    2,
			Algorithm: "SHA1",
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
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
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

// Validate checks the configuration for internal consistency. It is called
// by [Builder.Build] and may be called directly after [FromEnv].
func (c *Config) Validate() error {
	// Token
	if len(c.Token.AccessSecret) < 32 {
		return errors.New("Token AccessSecret must be at least 32 bytes")
	}
	if len(c.Token.RefreshSecret) < 32 {
		return errors.New("Token RefreshSecret must be at least 32 bytes")
	}
	if bytes.Equal(c.Token.AccessSecret, c.Token.RefreshSecret) {
		return errors.New("Token AccessSecret and RefreshSecret must differ")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be longer than AccessTTL")
	}
	if c.Token.AccessIssuer == "" || c.Token.AccessAudience == "" {
		return errors.New("Token AccessIssuer and AccessAudience must be set")
	}
	if c.Token.RefreshIssuer == "" || c.Token.RefreshAudience == "" {
		return errors.New("Token RefreshIssuer and RefreshAudience must be set")
	}
	if c.Token.AccessIssuer == c.Token.RefreshIssuer && c.Token.AccessAudience == c.Token.RefreshAudience {
		return errors.New("Token access and refresh issuer/audience pairs must differ")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.StoreTimeout <= 0 {
		return errors.New("Session StoreTimeout must be > 0")
	}

	// RateLimit
	if c.RateLimit.MaxLoginAttempts <= 0 {
		return errors.New("RateLimit MaxLoginAttempts must be > 0")
	}
	if c.RateLimit.AttemptWindow <= 0 {
		return errors.New("RateLimit AttemptWindow must be > 0")
	}
	if c.RateLimit.LockoutDuration <= 0 {
		return errors.New("RateLimit LockoutDuration must be > 0")
	}

	// Password
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		return errors.New("Password BcryptCost must be between 4 and 31")
	}
	if c.Password.MinLength < 1 || c.Password.MinLength > 72 {
		return errors.New("Password MinLength must be between 1 and 72")
	}

	// MFA
	if c.MFA.Enabled {
		if c.MFA.Issuer == "" {
			return errors.New("MFA Issuer must be set when MFA is enabled")
		}
		if c.MFA.Digits < 6 || c.MFA.Digits > 10 {
			return errors.New("MFA Digits must be between 6 and 10")
		}
		if c.MFA.Period < 15 || c.MFA.Period > 120 {
			return errors.New("MFA Period must be between 15 and 120 seconds")
		}
		if c.MFA.Window < 0 || c.MFA.Window > 4 {
			return errors.New("MFA Window must be between 0 and 4 steps")
		}
		switch c.MFA.Algorithm {
		case "", "SHA1", "SHA256", "SHA512":
		default:
			return errors.New("MFA Algorithm must be SHA1, SHA256, or SHA512")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
