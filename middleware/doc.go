// Package middleware adapts the engine to net/http.
//
// [RequireAuth] reads the Authorization header, verifies the token through
// [authguard.Engine.VerifyAccess], and injects the claims into the request
// context. [ClientInfo] records the caller's IP and user agent so login
// audit events and suspicion heuristics can see them.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls; every
// authentication decision is delegated. It never parses tokens itself,
// never talks to Redis, and never makes authorization decisions beyond the
// pass/reject it gets back.
package middleware
