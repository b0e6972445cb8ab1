package authguard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reachly/authguard/internal/rate"
)

// Login authenticates an email/password pair and issues a token pair. The
// flow is: rate limits, suspicion heuristics, directory lookup, password
// compare, then session issuance. Accounts with a second factor enrolled get
// [ErrMFARequired] instead of tokens; complete those logins with
// [Engine.LoginWithTOTP].
//
// Unknown emails and wrong passwords both return [ErrInvalidCredentials]
// after a hash comparison of equal cost, so response timing does not reveal
// whether an account exists.
func (e *Engine) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	return e.loginInternal(ctx, email, password, "", false)
}

// LoginWithTOTP is [Engine.Login] for accounts with a second factor: the
// TOTP code is verified after the password and before any tokens are issued.
// A wrong code returns [ErrMFAInvalid] and counts against the caller's
// failure budget.
func (e *Engine) LoginWithTOTP(ctx context.Context, email, password, code string) (*TokenPair, error) {
	return e.loginInternal(ctx, email, password, code, true)
}

func (e *Engine) loginInternal(ctx context.Context, email, password, totpCode string, totpProvided bool) (*TokenPair, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if e.directory == nil {
		return nil, fmt.Errorf("%w: no user directory configured", ErrEngineNotReady)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrValidation)
	}

	ip := clientIPFromContext(ctx)
	userAgent := userAgentFromContext(ctx)

	emailStatus := e.limiter.Check(ctx, rate.KindEmail, email)
	ipStatus := e.limiter.Check(ctx, rate.KindIP, ip)
	if emailStatus.Armed {
		e.noteLockoutArmed(ctx, rate.KindEmail, email, emailStatus.ResetAt)
	}
	if ipStatus.Armed {
		e.noteLockoutArmed(ctx, rate.KindIP, ip, ipStatus.ResetAt)
	}
	if emailStatus.Limited || ipStatus.Limited {
		resetAt := emailStatus.ResetAt
		if ipStatus.ResetAt.After(resetAt) {
			resetAt = ipStatus.ResetAt
		}
		e.metricInc(MetricLoginRateLimited)
		e.metricInc(MetricRateLimitHit)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", email, "", ErrRateLimited, func() map[string]string {
			return map[string]string{"reset_at": resetAt.UTC().Format(time.RFC3339)}
		})
		return nil, &RateLimitedError{ResetAt: resetAt}
	}

	// Heuristics observe and report; they never block the attempt.
	if sus := e.limiter.DetectSuspicious(ctx, email, ip, userAgent); sus.Suspicious {
		e.metricInc(MetricSuspiciousLogin)
		e.emitAudit(ctx, auditEventLoginSuspicious, false, "", email, "", nil, func() map[string]string {
			return map[string]string{"reasons": strings.Join(sus.Reasons, "; ")}
		})
	}

	if password == "" {
		e.limiter.RecordAttempt(ctx, email, ip, userAgent, false)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_password"}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, ErrStoreUnavailable
		}
		e.hasher.Compare(password, e.dummyHash)
		e.limiter.RecordAttempt(ctx, email, ip, userAgent, false)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "user_not_found"}
		})
		return nil, ErrInvalidCredentials
	}

	if !e.hasher.Compare(password, user.PasswordHash) {
		e.limiter.RecordAttempt(ctx, email, ip, userAgent, false)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, email, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if !totpProvided {
			e.metricInc(MetricMFARequired)
			e.emitAudit(ctx, auditEventMFARequired, false, user.UserID, email, "", ErrMFARequired, nil)
			return nil, ErrMFARequired
		}
		if e.verifier == nil {
			return nil, fmt.Errorf("%w: account requires MFA but none is configured", ErrEngineNotReady)
		}
		if !e.verifier.ValidCodeFormat(totpCode) || !e.verifier.VerifyCode(user.TOTPSecret, totpCode, time.Now()) {
			e.limiter.RecordAttempt(ctx, email, ip, userAgent, false)
			e.metricInc(MetricTOTPFailure)
			e.emitAudit(ctx, auditEventMFAFailure, false, user.UserID, email, "", ErrMFAInvalid, nil)
			return nil, ErrMFAInvalid
		}
		e.metricInc(MetricTOTPSuccess)
		e.emitAudit(ctx, auditEventMFASuccess, true, user.UserID, email, "", nil, nil)
	}

	pair, err := e.Issue(ctx, IssueInput{
		UserID:            user.UserID,
		Email:             user.Email,
		Role:              user.Role,
		SubscriptionLevel: user.SubscriptionLevel,
		DeviceInfo:        userAgent,
	})
	if err != nil {
		return nil, err
	}

	e.limiter.RecordAttempt(ctx, email, ip, userAgent, true)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, email, pair.SessionID, nil, nil)
	return pair, nil
}
