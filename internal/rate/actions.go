package rate

import (
	"context"
	"log"
	"time"
)

// CheckAction reports whether the identifier is within the budget for a
// named action such as "password_reset" or "mfa_verify". Action quotas use
// plain fixed windows and never arm lockout markers.
func (l *Limiter) CheckAction(ctx context.Context, action, identifier string, max int) Status {
	if max <= 0 || identifier == "" {
		return Status{Remaining: max}
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	count, window, err := l.counterWithTTL(ctx, actionKey(action, identifier))
	if err != nil {
		log.Print("authguard: action limit check unavailable, failing open")
		return Status{Remaining: max}
	}

	status := Status{Limited: count >= max, Remaining: max - count}
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if window > 0 {
		status.ResetAt = time.Now().Add(window)
	}
	return status
}

// RecordAction counts one use of a named action against the identifier. The
// window starts with the first use and is not extended by later ones.
func (l *Limiter) RecordAction(ctx context.Context, action, identifier string, window time.Duration) {
	if identifier == "" {
		return
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if _, err := l.bumpCounter(ctx, actionKey(action, identifier), window); err != nil {
		log.Print("authguard: action recording unavailable")
	}
}
