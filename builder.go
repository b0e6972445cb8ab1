package authguard

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/reachly/authguard/internal/rate"
	"github.com/reachly/authguard/mfa"
	"github.com/reachly/authguard/password"
	"github.com/reachly/authguard/session"
	"github.com/reachly/authguard/token"
)

// Builder assembles an [Engine]. Configure it with the With* methods and
// call [Builder.Build] once; a Builder is not safe for concurrent use and
// cannot be reused after Build.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory UserDirectory
	auditSink AuditSink

	built bool
}

// New returns a Builder carrying the default configuration. Callers must
// still provide secrets (via [Builder.WithConfig] or [FromEnv]) and a Redis
// client before Build succeeds.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration. The config is copied;
// later mutations of cfg do not affect the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing sessions and rate limits. Both
// single-node and cluster clients satisfy [redis.UniversalClient].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory wires the caller's identity store into the login flow.
// Without a directory the engine still issues, verifies, and refreshes
// tokens, but [Engine.Login] is unavailable.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithAuditSink sets the audit event destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles verification latency buckets. Has no effect
// unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and constructs the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- TOKEN MANAGER --------
	tokens, err := token.NewManager(token.Config{
		Access: token.KeyConfig{
			Secret:   cloneBytes(cfg.Token.AccessSecret),
			TTL:      cfg.Token.AccessTTL,
			Issuer:   cfg.Token.AccessIssuer,
			Audience: cfg.Token.AccessAudience,
		},
		Refresh: token.KeyConfig{
			Secret:   cloneBytes(cfg.Token.RefreshSecret),
			TTL:      cfg.Token.RefreshTTL,
			Issuer:   cfg.Token.RefreshIssuer,
			Audience: cfg.Token.RefreshAudience,
		},
		Leeway: cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.Config{
		Cost:      cfg.Password.BcryptCost,
		MinLength: cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	dummyPassword, err := password.GenerateRandom(32)
	if err != nil {
		return nil, fmt.Errorf("generate dummy credential: %w", err)
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("generate dummy credential: %w", err)
	}

	// -------- MFA VERIFIER --------
	var verifier *mfa.Verifier
	if cfg.MFA.Enabled {
		verifier, err = mfa.NewVerifier(mfa.Config{
			Issuer:    cfg.MFA.Issuer,
			Digits:    cfg.MFA.Digits,
			Period:    cfg.MFA.Period,
			Window:    cfg.MFA.Window,
			Algorithm: cfg.MFA.Algorithm,
		})
		if err != nil {
			return nil, err
		}
	}

	// -------- STORES --------
	limiter := rate.New(b.redis, rate.Config{
		MaxAttempts:     cfg.RateLimit.MaxLoginAttempts,
		AttemptWindow:   cfg.RateLimit.AttemptWindow,
		LockoutDuration: cfg.RateLimit.LockoutDuration,
		OpTimeout:       cfg.Session.StoreTimeout,
	})

	engine := &Engine{
		config:    cfg,
		tokens:    tokens,
		sessions:  session.NewStore(b.redis, cfg.Session.StoreTimeout),
		limiter:   limiter,
		hasher:    hasher,
		verifier:  verifier,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		directory: b.directory,
		dummyHash: dummyHash,
	}

	b.built = true

	return engine, nil
}
