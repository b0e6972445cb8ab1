package authguard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reachly/authguard/password"
)

// mapPolicyErr rewrites package-level policy violations onto the public
// sentinel while keeping the human-readable reason.
func mapPolicyErr(err error) error {
	if err == nil {
		return nil
	}
	reason := strings.TrimPrefix(err.Error(), password.ErrPolicy.Error())
	reason = strings.TrimPrefix(reason, ": ")
	if reason == "" {
		return ErrPasswordPolicy
	}
	return fmt.Errorf("%w: %s", ErrPasswordPolicy, reason)
}

// HashPassword checks the strength policy and returns the bcrypt digest.
// Policy violations return an [ErrPasswordPolicy] wrap naming the first
// unmet requirement.
func (e *Engine) HashPassword(pw string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}

	digest, err := e.hasher.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrPolicy) {
			return "", mapPolicyErr(err)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}

// ComparePassword reports whether pw matches the stored digest. Malformed
// digests and empty inputs report false.
func (e *Engine) ComparePassword(pw, digest string) bool {
	if e == nil || e.hasher == nil {
		return false
	}
	return e.hasher.Compare(pw, digest)
}

// CheckPasswordPolicy validates pw against the strength policy without
// hashing it.
func (e *Engine) CheckPasswordPolicy(pw string) error {
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return mapPolicyErr(e.hasher.CheckPolicy(pw))
}

// PasswordStrength scores pw from 0 (unusable) to 5 (strong) and returns
// feedback lines for anything that held the score down.
func (e *Engine) PasswordStrength(pw string) (int, []string) {
	if e == nil || e.hasher == nil {
		return 0, nil
	}
	return e.hasher.Score(pw)
}

// PasswordNeedsRehash reports whether the stored digest uses a weaker work
// factor than currently configured. Callers typically re-hash on the next
// successful login.
func (e *Engine) PasswordNeedsRehash(digest string) bool {
	if e == nil || e.hasher == nil {
		return false
	}
	return e.hasher.NeedsRehash(digest)
}

// GenerateRandomPassword returns a random password of the given length that
// satisfies the strength policy. Lengths are clamped to [8, 128]; zero uses
// the default of 16.
func (e *Engine) GenerateRandomPassword(length int) (string, error) {
	return password.GenerateRandom(length)
}

// NewPasswordResetToken returns a fresh reset token and the commitment to
// store server-side. Only the commitment should be persisted; the token
// itself goes to the user out of band.
func (e *Engine) NewPasswordResetToken() (token, commitment string, err error) {
	return password.NewResetToken()
}

// VerifyPasswordResetToken reports whether token matches the stored
// commitment, in constant time.
func (e *Engine) VerifyPasswordResetToken(token, commitment string) bool {
	return password.VerifyResetToken(token, commitment)
}
