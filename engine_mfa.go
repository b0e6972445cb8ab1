package authguard

import (
	"time"

	"github.com/reachly/authguard/mfa"
)

// MFAEnabled reports whether the engine was built with TOTP configured.
func (e *Engine) MFAEnabled() bool {
	return e != nil && e.verifier != nil
}

// GenerateTOTPSetup creates everything needed to enroll account in TOTP: a
// fresh secret, the otpauth:// provisioning URI for authenticator apps, and
// a set of single-use backup codes. The caller persists the secret and the
// backup codes; nothing is stored by the engine.
func (e *Engine) GenerateTOTPSetup(account string) (*TOTPSetup, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.verifier == nil {
		return nil, ErrMFADisabled
	}
	return e.verifier.GenerateSetup(account)
}

// VerifyTOTP reports whether code is valid for secret at the current time,
// within the configured drift window. A missing MFA configuration reports
// false.
func (e *Engine) VerifyTOTP(secret, code string) bool {
	if e == nil || e.verifier == nil {
		return false
	}

	ok := e.verifier.VerifyCode(secret, code, time.Now())
	if ok {
		e.metricInc(MetricTOTPSuccess)
	} else {
		e.metricInc(MetricTOTPFailure)
	}
	return ok
}

// GenerateBackupCodes returns a fresh set of single-use backup codes in
// canonical XXXX-XXXX form.
func (e *Engine) GenerateBackupCodes() ([]string, error) {
	return mfa.GenerateBackupCodes(mfa.BackupCodeCount)
}

// VerifyBackupCode checks code against the stored plaintext codes and, on a
// match, returns the remaining codes with the used one removed. The caller
// persists the returned slice.
func (e *Engine) VerifyBackupCode(codes []string, code string) (bool, []string) {
	ok, remaining := mfa.VerifyBackupCode(codes, code)
	if ok {
		e.metricInc(MetricBackupCodeUsed)
	}
	return ok, remaining
}

// HashBackupCode returns the salted digest of code for at-rest storage.
func (e *Engine) HashBackupCode(salt, code string) string {
	return mfa.HashBackupCode(salt, code)
}

// VerifyHashedBackupCode is [Engine.VerifyBackupCode] for digests produced
// by [Engine.HashBackupCode]: it checks code against the stored hashes and
// returns the remaining hashes on a match.
func (e *Engine) VerifyHashedBackupCode(hashes []string, salt, code string) (bool, []string) {
	ok, remaining := mfa.VerifyHashedBackupCode(hashes, salt, code)
	if ok {
		e.metricInc(MetricBackupCodeUsed)
	}
	return ok, remaining
}
