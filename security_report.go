package authguard

import "time"

// SecurityReport summarizes the security-relevant configuration of a built
// Engine for startup logs and operational review. It contains no secrets.
type SecurityReport struct {
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	TokenLeeway       time.Duration
	BcryptCost        int
	MinPasswordLength int

	MFAEnabled    bool
	TOTPDigits    int
	TOTPWindow    int
	TOTPAlgorithm string

	MaxLoginAttempts   int
	AttemptWindow      time.Duration
	LockoutDuration    time.Duration
	RateLimitingActive bool

	AuditEnabled   bool
	MetricsEnabled bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rateLimiting := e.config.RateLimit.MaxLoginAttempts > 0 &&
		e.config.RateLimit.LockoutDuration > 0

	return SecurityReport{
		AccessTTL:         e.config.Token.AccessTTL,
		RefreshTTL:        e.config.Token.RefreshTTL,
		TokenLeeway:       e.config.Token.Leeway,
		BcryptCost:        e.config.Password.BcryptCost,
		MinPasswordLength: e.config.Password.MinLength,

		MFAEnabled:    e.config.MFA.Enabled,
		TOTPDigits:    e.config.MFA.Digits,
		TOTPWindow:    e.config.MFA.Window,
		TOTPAlgorithm: e.config.MFA.Algorithm,

		MaxLoginAttempts:   e.config.RateLimit.MaxLoginAttempts,
		AttemptWindow:      e.config.RateLimit.AttemptWindow,
		LockoutDuration:    e.config.RateLimit.LockoutDuration,
		RateLimitingActive: rateLimiting,

		AuditEnabled:   e.audit != nil,
		MetricsEnabled: e.metrics != nil && e.metrics.Enabled(),
	}
}
