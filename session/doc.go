// Package session provides Redis-backed persistence for login sessions and
// their refresh-token records.
//
// # Key layout
//
// Each login writes two JSON values with a shared TTL equal to the refresh
// lifetime:
//
//	session:<sessionId>        the Session record
//	refresh_token:<sessionId>  the RefreshRecord consumed on rotation
//
// A session is live exactly as long as its session: key exists. Token
// signature validity never substitutes for the existence check, which is what
// makes revocation (key deletion) immediate.
//
// # Architecture boundaries
//
// This package owns Redis operations and the two models. It does not parse
// JWTs, apply rate limits, or decide authentication policy; those belong to
// the Engine.
//
// # What this package must NOT do
//
//   - Import authguard, token, or ratelimit packages (no upward imports).
//   - Store token plaintext; only session metadata is persisted.
package session
