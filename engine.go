package authguard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/reachly/authguard/internal/rate"
	"github.com/reachly/authguard/mfa"
	"github.com/reachly/authguard/password"
	"github.com/reachly/authguard/session"
	"github.com/reachly/authguard/token"
)

// Engine is the authentication core: it issues and verifies token pairs,
// owns session lifecycle in Redis, throttles login attempts, and verifies
// second factors. Construct it through [Builder.Build]; a built Engine is
// immutable and safe for concurrent use.
type Engine struct {
	config    Config
	tokens    *token.Manager
	sessions  *session.Store
	limiter   *rate.Limiter
	hasher    *password.Hasher
	verifier  *mfa.Verifier
	audit     *auditDispatcher
	metrics   *Metrics
	directory UserDirectory

	// dummyHash is compared against when an email is unknown, so lookups
	// that miss cost the same as lookups that hit.
	dummyHash string
}

// Close flushes and stops the audit dispatcher. The Engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Ping verifies Redis connectivity, for readiness probes.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if _, err := e.sessions.Ping(ctx); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters and histogram buckets.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// Issue creates a session for an already-authenticated principal and returns
// its token pair. The access token embeds the identity claims from input as
// given; the session and refresh records are written in one transaction with
// the refresh lifetime as TTL. No state is left behind on failure.
func (e *Engine) Issue(ctx context.Context, input IssueInput) (*TokenPair, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}

	sessionID := uuid.NewString()
	now := time.Now()

	accessToken, err := e.tokens.CreateAccess(input.UserID, input.Email, input.Role, input.SubscriptionLevel, sessionID)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	refreshToken, err := e.tokens.CreateRefresh(input.UserID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	sess := session.Session{
		SessionID:    sessionID,
		UserID:       input.UserID,
		CreatedAt:    now,
		LastAccessAt: now,
		IsActive:     true,
	}
	record := session.RefreshRecord{
		UserID:     input.UserID,
		SessionID:  sessionID,
		DeviceInfo: input.DeviceInfo,
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.tokens.RefreshTTL()),
	}
	if err := e.sessions.Save(ctx, &sess, &record, e.tokens.RefreshTTL()); err != nil {
		log.Print("authguard: session write failed during issue")
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventTokenIssued, true, input.UserID, input.Email, sessionID, nil, nil)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		ExpiresAt:    now.Add(e.tokens.AccessTTL()),
	}, nil
}

// VerifyAccess authenticates a request. The token must carry a valid
// signature, issuer, audience, and expiry, and its session must still exist
// and be active. Every rejection is [ErrUnauthorized]; callers cannot tell
// an expired token from a revoked session. On success the session's
// last-access time is updated best-effort.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*AccessClaims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyRejected, false, "", "", "", ErrUnauthorized, nil)
		return nil, ErrUnauthorized
	}

	sess, err := e.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			log.Print("authguard: session read failed during verify")
		}
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyRejected, false, claims.UserID, "", claims.SessionID, ErrUnauthorized, nil)
		return nil, ErrUnauthorized
	}
	if !sess.IsActive || sess.UserID != claims.UserID {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyRejected, false, claims.UserID, "", claims.SessionID, ErrUnauthorized, nil)
		return nil, ErrUnauthorized
	}

	if err := e.sessions.TouchLastAccess(ctx, claims.SessionID, time.Now()); err != nil {
		log.Print("authguard: session touch failed after verify")
	}

	e.metricInc(MetricVerifySuccess)
	e.metricObserve(MetricVerifyLatency, time.Since(start))
	return claims, nil
}

// Refresh redeems a refresh token for a brand-new session and token pair.
// Redemption is single-use: the refresh record is consumed atomically, and a
// second redemption of the same token fails with [ErrUnauthorized]. The
// prior session record is not deleted; it lapses with its own TTL.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", ErrUnauthorized, nil)
		return nil, ErrUnauthorized
	}

	// Identity is resolved before the record is consumed so a directory
	// outage leaves the token redeemable.
	var identity UserRecord
	if e.directory != nil {
		identity, err = e.directory.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				e.metricInc(MetricRefreshFailure)
				e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UserID, "", claims.SessionID, ErrUnauthorized, nil)
				return nil, ErrUnauthorized
			}
			return nil, ErrStoreUnavailable
		}
	}

	record, err := e.sessions.ConsumeRefreshRecord(ctx, claims.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			// Valid signature but no record: it was redeemed, revoked, or
			// expired. Treat as replay.
			e.metricInc(MetricRefreshReplay)
			e.emitAudit(ctx, auditEventRefreshReplay, false, claims.UserID, "", claims.SessionID, ErrUnauthorized, nil)
			return nil, ErrUnauthorized
		case errors.Is(err, session.ErrRedisUnavailable):
			log.Print("authguard: refresh record read failed")
			return nil, ErrStoreUnavailable
		default:
			e.metricInc(MetricRefreshFailure)
			return nil, ErrUnauthorized
		}
	}

	if record.UserID != claims.UserID || record.SessionID != claims.SessionID {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UserID, "", claims.SessionID, ErrUnauthorized, nil)
		return nil, ErrUnauthorized
	}
	if time.Now().After(record.ExpiresAt) {
		if err := e.sessions.Delete(ctx, claims.SessionID); err != nil {
			log.Print("authguard: stale session cleanup failed during refresh")
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UserID, "", claims.SessionID, ErrUnauthorized, nil)
		return nil, ErrUnauthorized
	}

	pair, err := e.Issue(ctx, IssueInput{
		UserID:            claims.UserID,
		Email:             identity.Email,
		Role:              identity.Role,
		SubscriptionLevel: identity.SubscriptionLevel,
		DeviceInfo:        record.DeviceInfo,
	})
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.UserID, identity.Email, pair.SessionID, nil, func() map[string]string {
		return map[string]string{"previous_session": claims.SessionID}
	})
	return pair, nil
}
