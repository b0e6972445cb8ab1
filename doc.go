// Package authguard provides an embeddable authentication core: JWT access
// tokens, single-use refresh tokens, Redis-backed sessions, login throttling
// with lockouts, TOTP second factors, and bcrypt credential handling.
//
// The package targets concurrent server workloads. Engine methods are safe
// to call from multiple goroutines after construction through
// [Builder.Build].
//
// # Architecture boundaries
//
// authguard is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, LimitStatus, MetricsSnapshot, etc.). Token
// signing lives in package token, session persistence in package session,
// credential hashing in package password, and TOTP material in package mfa.
// The login throttle is internal and reachable only through Engine methods.
//
// The engine never stores user accounts. Identity lookups go through the
// caller's [UserDirectory]; account creation and updates stay with the
// caller.
//
// # Failure posture
//
// Issuance, verification, and refresh fail closed: when the session store
// cannot confirm a session, the request is rejected. Rate limiting fails
// open: when the throttle store is unreachable, logins proceed and the
// degradation is logged.
//
// # Hot path contract
//
// VerifyAccess is the hot path. It costs one signature check and one Redis
// read, plus a best-effort last-access write that never fails the request.
package authguard
