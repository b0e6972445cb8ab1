package authguard

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestValidateCatchesBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "short access secret",
			mutate:  func(c *Config) { c.Token.AccessSecret = []byte("short") },
			wantErr: "AccessSecret",
		},
		{
			name:    "identical secrets",
			mutate:  func(c *Config) { c.Token.RefreshSecret = append([]byte(nil), c.Token.AccessSecret...) },
			wantErr: "must differ",
		},
		{
			name:    "zero access ttl",
			mutate:  func(c *Config) { c.Token.AccessTTL = 0 },
			wantErr: "AccessTTL",
		},
		{
			name:    "refresh not longer than access",
			mutate:  func(c *Config) { c.Token.RefreshTTL = c.Token.AccessTTL },
			wantErr: "RefreshTTL",
		},
		{
			name:    "missing access issuer",
			mutate:  func(c *Config) { c.Token.AccessIssuer = "" },
			wantErr: "AccessIssuer",
		},
		{
			name: "identical token contexts",
			mutate: func(c *Config) {
				c.Token.RefreshIssuer = c.Token.AccessIssuer
				c.Token.RefreshAudience = c.Token.AccessAudience
			},
			wantErr: "issuer/audience",
		},
		{
			name:    "leeway too generous",
			mutate:  func(c *Config) { c.Token.Leeway = 3 * time.Minute },
			wantErr: "Leeway",
		},
		{
			name:    "zero store timeout",
			mutate:  func(c *Config) { c.Session.StoreTimeout = 0 },
			wantErr: "StoreTimeout",
		},
		{
			name:    "zero login attempts",
			mutate:  func(c *Config) { c.RateLimit.MaxLoginAttempts = 0 },
			wantErr: "MaxLoginAttempts",
		},
		{
			name:    "bcrypt cost below floor",
			mutate:  func(c *Config) { c.Password.BcryptCost = 3 },
			wantErr: "BcryptCost",
		},
		{
			name:    "min length above bcrypt input cap",
			mutate:  func(c *Config) { c.Password.MinLength = 73 },
			wantErr: "MinLength",
		},
		{
			name: "mfa enabled without issuer",
			mutate: func(c *Config) {
				c.MFA.Enabled = true
				c.MFA.Issuer = ""
			},
			wantErr: "Issuer",
		},
		{
			name: "mfa unknown algorithm",
			mutate: func(c *Config) {
				c.MFA.Enabled = true
				c.MFA.Issuer = "x"
				c.MFA.Algorithm = "MD5"
			},
			wantErr: "Algorithm",
		},
		{
			name: "audit enabled with zero buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantErr: "BufferSize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted a bad config")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAcceptsTestConfig(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate rejected a good config: %v", err)
	}
}

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("defaults validated without secrets")
	}
	if !strings.Contains(err.Error(), "AccessSecret") {
		t.Fatalf("error %q does not point at the missing secret", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl = %v, want 15m", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("refresh ttl = %v, want 168h", cfg.Token.RefreshTTL)
	}
	if cfg.RateLimit.MaxLoginAttempts != 5 {
		t.Fatalf("max attempts = %d, want 5", cfg.RateLimit.MaxLoginAttempts)
	}
	if cfg.Password.BcryptCost != 12 || cfg.Password.MinLength != 8 {
		t.Fatalf("password defaults = %+v", cfg.Password)
	}
	if cfg.MFA.Enabled || cfg.Audit.Enabled || cfg.Metrics.Enabled {
		t.Fatal("optional subsystems default on")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "env-access-secret-0123456789abcdefgh")
	t.Setenv("AUTH_REFRESH_SECRET", "env-refresh-secret-0123456789abcdefgh")
	t.Setenv("AUTH_ACCESS_TTL", "5m")
	t.Setenv("AUTH_MAX_LOGIN_ATTEMPTS", "10")
	t.Setenv("AUTH_MFA_ISSUER", "envtest")
	t.Setenv("AUTH_METRICS_ENABLED", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if string(cfg.Token.AccessSecret) != "env-access-secret-0123456789abcdefgh" {
		t.Fatalf("access secret not taken from env")
	}
	if cfg.Token.AccessTTL != 5*time.Minute {
		t.Fatalf("access ttl = %v, want 5m", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("refresh ttl default lost: %v", cfg.Token.RefreshTTL)
	}
	if cfg.RateLimit.MaxLoginAttempts != 10 {
		t.Fatalf("max attempts = %d, want 10", cfg.RateLimit.MaxLoginAttempts)
	}
	if !cfg.MFA.Enabled || cfg.MFA.Issuer != "envtest" {
		t.Fatalf("mfa not enabled by issuer: %+v", cfg.MFA)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics not enabled from env")
	}
}

func TestFromEnvValidates(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "too-short")
	t.Setenv("AUTH_REFRESH_SECRET", "env-refresh-secret-0123456789abcdefgh")

	if _, err := FromEnv(); err == nil {
		t.Fatal("FromEnv accepted an undersized secret")
	}
}

func TestBuildClonesSecrets(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	pair, err := engine.Issue(ctx, IssueInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Scribbling over the caller's secret after Build must not break the
	// engine's signing key.
	for i := range cfg.Token.AccessSecret {
		cfg.Token.AccessSecret[i] = 0
	}

	if _, err := engine.VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("VerifyAccess after clobbering caller secret failed: %v", err)
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("Build without redis succeeded")
	}
}

func TestBuilderRejectsReuse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().WithConfig(testConfig()).WithRedis(rdb)
	if _, err := builder.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := builder.Build(); err == nil {
		t.Fatal("second Build on the same builder succeeded")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Token.AccessSecret = nil

	if _, err := New().WithConfig(cfg).WithRedis(rdb).Build(); err == nil {
		t.Fatal("Build accepted an invalid config")
	}
}
