// Package mfa implements TOTP verification and backup-code handling for
// second-factor enrollment and login.
//
// # Scope
//
// The [Verifier] generates enrollment material (base32 secret, otpauth
// provisioning URI, backup codes) and verifies submitted codes. TOTP follows
// RFC 6238 on top of RFC 4226 dynamic truncation, with a configurable
// time-step window for clock drift (default two steps either side, 60s at
// the standard 30s period).
//
// # Backup codes
//
// Backup codes are single-use. [VerifyBackupCode] compares the submitted code
// against every stored candidate in constant time and returns the remaining
// set with the matched code removed; the caller persists the new set. For
// hashed-at-rest storage, [HashBackupCode] produces a salted SHA-256 digest
// and [VerifyHashedBackupCode] performs the same single-use check against
// digests.
//
// # What this package must NOT do
//
//   - Persist secrets, codes, or verification state.
//   - Import any other authguard package.
//   - Log secrets or codes.
package mfa
