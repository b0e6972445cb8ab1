package authguard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reachly/authguard/internal/rate"
)

// IdentifierKind selects which throttle scope an identifier belongs to.
type IdentifierKind string

const (
	IdentifierEmail IdentifierKind = rate.KindEmail
	IdentifierIP    IdentifierKind = rate.KindIP
)

// LimitStatus reports the throttle state of one identifier. When Limited,
// ResetAt is the lockout deadline; otherwise it is the end of the current
// counting window, or zero if no window is open.
type LimitStatus struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
}

// LoginAttempt is one entry of the bounded login attempt log.
type LoginAttempt struct {
	Email     string    `json:"email"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Success   bool      `json:"success"`
	At        time.Time `json:"at"`
}

// SuspicionReport is the outcome of the login heuristics for one attempt.
type SuspicionReport struct {
	Suspicious bool
	Reasons    []string
}

// IPActivity pairs a source IP with its failure count in the current window.
type IPActivity struct {
	IP       string
	Failures int
}

func canonicalIdentifier(kind IdentifierKind, identifier string) string {
	if kind == IdentifierEmail {
		return strings.ToLower(strings.TrimSpace(identifier))
	}
	return strings.TrimSpace(identifier)
}

func (e *Engine) noteLockoutArmed(ctx context.Context, kind, identifier string, resetAt time.Time) {
	var email string
	if kind == rate.KindEmail {
		email = identifier
	}
	e.metricInc(MetricLockoutArmed)
	e.emitAudit(ctx, auditEventLockoutArmed, false, "", email, "", nil, func() map[string]string {
		return map[string]string{
			"kind":       kind,
			"identifier": identifier,
			"reset_at":   resetAt.UTC().Format(time.RFC3339),
		}
	})
}

// CheckLimit reports whether the identifier may attempt a login. A check
// that finds the failure budget exhausted arms the lockout, so the answer
// stays negative for the full lockout duration. If the throttle store is
// unreachable the check fails open and reports a full budget.
func (e *Engine) CheckLimit(ctx context.Context, identifier string, kind IdentifierKind) LimitStatus {
	if e == nil || e.limiter == nil {
		return LimitStatus{}
	}

	identifier = canonicalIdentifier(kind, identifier)
	status := e.limiter.Check(ctx, string(kind), identifier)
	if status.Armed {
		e.noteLockoutArmed(ctx, string(kind), identifier, status.ResetAt)
	}
	if status.Limited {
		e.metricInc(MetricRateLimitHit)
	}
	return LimitStatus{
		Limited:   status.Limited,
		Remaining: status.Remaining,
		ResetAt:   status.ResetAt,
	}
}

// RecordFailure counts one failed login attempt against the email and the
// client IP from ctx, and appends it to the attempt log. Use this when the
// credential check happens outside [Engine.Login].
func (e *Engine) RecordFailure(ctx context.Context, email string) {
	if e == nil || e.limiter == nil {
		return
	}
	email = canonicalIdentifier(IdentifierEmail, email)
	e.limiter.RecordAttempt(ctx, email, clientIPFromContext(ctx), userAgentFromContext(ctx), false)
}

// RecordSuccess logs one successful login and clears the failure counters
// and lockout markers for the email and the client IP from ctx.
func (e *Engine) RecordSuccess(ctx context.Context, email string) {
	if e == nil || e.limiter == nil {
		return
	}
	email = canonicalIdentifier(IdentifierEmail, email)
	e.limiter.RecordAttempt(ctx, email, clientIPFromContext(ctx), userAgentFromContext(ctx), true)
}

// CheckAction reports whether identifier has quota left for a named action
// such as "export" or "invite". Action quotas are plain fixed windows with
// no lockout escalation.
func (e *Engine) CheckAction(ctx context.Context, action, identifier string, max int) LimitStatus {
	if e == nil || e.limiter == nil {
		return LimitStatus{}
	}
	status := e.limiter.CheckAction(ctx, action, identifier, max)
	return LimitStatus{
		Limited:   status.Limited,
		Remaining: status.Remaining,
		ResetAt:   status.ResetAt,
	}
}

// RecordAction consumes one unit of the identifier's quota for the named
// action. The window TTL is armed by the first consumption.
func (e *Engine) RecordAction(ctx context.Context, action, identifier string, window time.Duration) {
	if e == nil || e.limiter == nil {
		return
	}
	e.limiter.RecordAction(ctx, action, identifier, window)
}

// DetectSuspicious runs the login heuristics for one attempt: distinct IPs
// per account in the last hour, failure volume from the client IP, and
// scripted user agents. The client IP and user agent are taken from ctx.
// Detection informs; it never blocks an attempt by itself.
func (e *Engine) DetectSuspicious(ctx context.Context, email string) SuspicionReport {
	if e == nil || e.limiter == nil {
		return SuspicionReport{}
	}
	email = canonicalIdentifier(IdentifierEmail, email)
	sus := e.limiter.DetectSuspicious(ctx, email, clientIPFromContext(ctx), userAgentFromContext(ctx))
	return SuspicionReport{Suspicious: sus.Suspicious, Reasons: sus.Reasons}
}

// Block locks an identifier out manually for the given duration, or for the
// configured lockout duration when d is zero. Unlike the request-path
// checks, administrative blocks surface store errors.
func (e *Engine) Block(ctx context.Context, identifier string, kind IdentifierKind, d time.Duration) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}
	identifier = canonicalIdentifier(kind, identifier)
	if identifier == "" {
		return fmt.Errorf("%w: identifier required", ErrValidation)
	}

	if err := e.limiter.Block(ctx, string(kind), identifier, d); err != nil {
		return ErrStoreUnavailable
	}

	var email string
	if kind == IdentifierEmail {
		email = identifier
	}
	e.emitAudit(ctx, auditEventIdentifierBlock, true, "", email, "", nil, func() map[string]string {
		return map[string]string{
			"kind":       string(kind),
			"identifier": identifier,
			"duration":   d.String(),
		}
	})
	return nil
}

// Unblock clears an identifier's lockout marker and failure counter.
func (e *Engine) Unblock(ctx context.Context, identifier string, kind IdentifierKind) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}
	identifier = canonicalIdentifier(kind, identifier)
	if identifier == "" {
		return fmt.Errorf("%w: identifier required", ErrValidation)
	}

	if err := e.limiter.Unblock(ctx, string(kind), identifier); err != nil {
		return ErrStoreUnavailable
	}

	var email string
	if kind == IdentifierEmail {
		email = identifier
	}
	e.emitAudit(ctx, auditEventIdentifierClear, true, "", email, "", nil, func() map[string]string {
		return map[string]string{
			"kind":       string(kind),
			"identifier": identifier,
		}
	})
	return nil
}

// ListSuspiciousIPs returns the IPs whose failure count in the current
// window is at or above threshold, busiest first.
func (e *Engine) ListSuspiciousIPs(ctx context.Context, threshold int) ([]IPActivity, error) {
	if e == nil || e.limiter == nil {
		return nil, ErrEngineNotReady
	}

	activity, err := e.limiter.ListSuspiciousIPs(ctx, threshold)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	out := make([]IPActivity, len(activity))
	for i, a := range activity {
		out[i] = IPActivity{IP: a.IP, Failures: a.Failures}
	}
	return out, nil
}

// RecentAttempts returns up to n entries of the login attempt log, newest
// first.
func (e *Engine) RecentAttempts(ctx context.Context, n int) ([]LoginAttempt, error) {
	if e == nil || e.limiter == nil {
		return nil, ErrEngineNotReady
	}

	attempts, err := e.limiter.RecentAttempts(ctx, n)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	out := make([]LoginAttempt, len(attempts))
	for i, a := range attempts {
		out[i] = LoginAttempt{
			Email:     a.Email,
			IP:        a.IP,
			UserAgent: a.UserAgent,
			Success:   a.Success,
			At:        a.At,
		}
	}
	return out, nil
}
