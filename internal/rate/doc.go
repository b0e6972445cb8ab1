// Package rate implements the Redis-backed throttle behind the
// authentication engine: fixed-window failure counters, lockout markers,
// named action quotas, and lightweight abuse heuristics.
//
// # Key layout
//
//   - rate_limit:<type>:<identifier> holds the failure counter for the current window
//   - lockout:<type>:<identifier> holds the lockout deadline as unix seconds
//   - action_limit:<action>:<identifier> holds the counter for a named action quota
//   - recent_ips:<email> holds the set of IPs seen for an account in the last hour
//   - login_attempts holds the newest-first attempt log, capped at 1000 entries
//
// Identifiers arrive pre-canonicalized; the engine lowercases emails before
// calling into this package.
//
// # Failure handling
//
// Request-path methods (Check, RecordAttempt, CheckAction, RecordAction,
// DetectSuspicious) fail open when Redis is unreachable: a warning is logged
// and the caller is reported as unlimited. Administrative methods return
// ErrRedisUnavailable instead.
package rate
