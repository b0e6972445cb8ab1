package authguard

import (
	"context"
	"fmt"
	"strconv"
)

// Invalidate revokes a single session. The session and its refresh record
// are removed together, so both the access token and the refresh token stop
// working at once. Invalidating a session that no longer exists is a no-op.
func (e *Engine) Invalidate(ctx context.Context, sessionID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return fmt.Errorf("%w: session id required", ErrValidation)
	}

	// Best-effort owner lookup so the audit trail names the user.
	var userID string
	if sess, err := e.sessions.Get(ctx, sessionID); err == nil {
		userID = sess.UserID
	}

	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogoutSession, true, userID, "", sessionID, nil, nil)
	return nil
}

// InvalidateAll revokes every session belonging to userID and returns how
// many were revoked. Used for "log out everywhere" and credential rotation.
func (e *Engine) InvalidateAll(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: user id required", ErrValidation)
	}

	count, err := e.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, ErrStoreUnavailable
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", "", nil, func() map[string]string {
		return map[string]string{"sessions": strconv.Itoa(count)}
	})
	return count, nil
}

// ListSessions returns the user's live sessions, newest first, for device
// management views.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}

	sessions, err := e.sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, ErrStoreUnavailable
	}
	return sessions, nil
}
