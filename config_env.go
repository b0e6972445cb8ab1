package authguard

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envConfig mirrors the AUTH_* environment surface. Secrets arrive as plain
// strings and are converted to byte slices when mapped onto [Config].
type envConfig struct {
	AccessSecret    string        `envconfig:"AUTH_ACCESS_SECRET" required:"true"`
	RefreshSecret   string        `envconfig:"AUTH_REFRESH_SECRET" required:"true"`
	AccessTTL       time.Duration `envconfig:"AUTH_ACCESS_TTL" default:"15m"`
	RefreshTTL      time.Duration `envconfig:"AUTH_REFRESH_TTL" default:"168h"`
	AccessIssuer    string        `envconfig:"AUTH_ACCESS_ISSUER" default:"authguard"`
	AccessAudience  string        `envconfig:"AUTH_ACCESS_AUDIENCE" default:"access"`
	RefreshIssuer   string        `envconfig:"AUTH_REFRESH_ISSUER" default:"authguard"`
	RefreshAudience string        `envconfig:"AUTH_REFRESH_AUDIENCE" default:"refresh"`
	Leeway          time.Duration `envconfig:"AUTH_TOKEN_LEEWAY" default:"0s"`

	StoreTimeout time.Duration `envconfig:"AUTH_STORE_TIMEOUT" default:"5s"`

	MaxLoginAttempts int           `envconfig:"AUTH_MAX_LOGIN_ATTEMPTS" default:"5"`
	AttemptWindow    time.Duration `envconfig:"AUTH_ATTEMPT_WINDOW" default:"15m"`
	LockoutDuration  time.Duration `envconfig:"AUTH_LOCKOUT_DURATION" default:"15m"`

	BcryptCost        int `envconfig:"AUTH_BCRYPT_COST" default:"12"`
	MinPasswordLength int `envconfig:"AUTH_MIN_PASSWORD_LENGTH" default:"8"`

	MFAIssuer string `envconfig:"AUTH_MFA_ISSUER" default:""`
	MFAWindow int    `envconfig:"AUTH_MFA_WINDOW" default:"2"`

	AuditEnabled    bool `envconfig:"AUTH_AUDIT_ENABLED" default:"false"`
	AuditBufferSize int  `envconfig:"AUTH_AUDIT_BUFFER_SIZE" default:"1024"`
	MetricsEnabled  bool `envconfig:"AUTH_METRICS_ENABLED" default:"false"`
}

// FromEnv builds a validated [Config] from AUTH_* environment variables.
// A .env file in the working directory is loaded first when present.
// Setting AUTH_MFA_ISSUER turns TOTP verification on.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var raw envConfig
	if err := envconfig.Process("", &raw); err != nil {
		return Config{}, fmt.Errorf("load config from environment: %w", err)
	}

	cfg := defaultConfig()
	cfg.Token.AccessSecret = []byte(raw.AccessSecret)
	cfg.Token.RefreshSecret = []byte(raw.RefreshSecret)
	cfg.Token.AccessTTL = raw.AccessTTL
	cfg.Token.RefreshTTL = raw.RefreshTTL
	cfg.Token.AccessIssuer = raw.AccessIssuer
	cfg.Token.AccessAudience = raw.AccessAudience
	cfg.Token.RefreshIssuer = raw.RefreshIssuer
	cfg.Token.RefreshAudience = raw.RefreshAudience
	cfg.Token.Leeway = raw.Leeway

	cfg.Session.StoreTimeout = raw.StoreTimeout

	cfg.RateLimit.MaxLoginAttempts = raw.MaxLoginAttempts
	cfg.RateLimit.AttemptWindow = raw.AttemptWindow
	cfg.RateLimit.LockoutDuration = raw.LockoutDuration

	cfg.Password.BcryptCost = raw.BcryptCost
	cfg.Password.MinLength = raw.MinPasswordLength

	if raw.MFAIssuer != "" {
		cfg.MFA.Enabled = true
		cfg.MFA.Issuer = raw.MFAIssuer
		cfg.MFA.Window = raw.MFAWindow
	}

	cfg.Audit.Enabled = raw.AuditEnabled
	cfg.Audit.BufferSize = raw.AuditBufferSize
	cfg.Metrics.Enabled = raw.MetricsEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
