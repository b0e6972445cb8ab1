package authguard

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by Engine methods. Check them with [errors.Is];
// none of them carry Redis errors, key names, or other internals.
var (
	// ErrValidation marks malformed or missing caller input.
	ErrValidation = errors.New("invalid input")

	// ErrUnauthorized covers every token or session rejection: bad
	// signature, expired, revoked, unknown session, replayed refresh. The
	// caller cannot tell these cases apart.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned for a wrong password and for an
	// unknown email alike, so login cannot be used to probe for accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited marks a throttled identifier. The concrete error is a
	// [*RateLimitedError] carrying the reset deadline.
	ErrRateLimited = errors.New("rate limited")

	// ErrMFARequired signals that password verification succeeded and a
	// second factor is still missing.
	ErrMFARequired = errors.New("mfa required")

	// ErrMFAInvalid marks a rejected TOTP or backup code.
	ErrMFAInvalid = errors.New("invalid mfa code")

	// ErrMFADisabled is returned by MFA operations when the engine was
	// built without MFA configured.
	ErrMFADisabled = errors.New("mfa disabled")

	// ErrPasswordPolicy marks a password rejected by the policy checks.
	ErrPasswordPolicy = errors.New("password policy violation")

	// ErrUserNotFound is returned by [UserDirectory] implementations for
	// unknown identifiers. Engine login paths fold it into
	// ErrInvalidCredentials before it reaches callers.
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreUnavailable marks Redis failures on paths that fail closed.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrEngineNotReady is returned when methods run on a nil or unbuilt
	// Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitedError reports when a throttled identifier may try again.
// It unwraps to [ErrRateLimited].
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	if e == nil || e.ResetAt.IsZero() {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
