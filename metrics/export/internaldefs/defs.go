package internaldefs

import (
	"github.com/reachly/authguard"
)

// CounterDef ties one engine counter to its stable exported name.
type CounterDef struct {
	ID   authguard.MetricID
	Name string
	Help string
}

// HistogramDef ties one engine histogram to its stable exported name.
type HistogramDef struct {
	ID   authguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a fixed order. Exporters
// iterate this slice so their output order is deterministic.
var CounterDefs = []CounterDef{
	{ID: authguard.MetricLoginSuccess, Name: "authguard_login_success_total", Help: "Successful login attempts."},
	{ID: authguard.MetricLoginFailure, Name: "authguard_login_failure_total", Help: "Failed login attempts."},
	{ID: authguard.MetricLoginRateLimited, Name: "authguard_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authguard.MetricVerifySuccess, Name: "authguard_verify_success_total", Help: "Successful access token verifications."},
	{ID: authguard.MetricVerifyFailure, Name: "authguard_verify_failure_total", Help: "Rejected access token verifications."},
	{ID: authguard.MetricRefreshSuccess, Name: "authguard_refresh_success_total", Help: "Successful refresh redemptions."},
	{ID: authguard.MetricRefreshFailure, Name: "authguard_refresh_failure_total", Help: "Failed refresh redemptions."},
	{ID: authguard.MetricRefreshReplay, Name: "authguard_refresh_replay_total", Help: "Refresh tokens presented after they were already redeemed."},
	{ID: authguard.MetricSessionCreated, Name: "authguard_session_created_total", Help: "Created sessions."},
	{ID: authguard.MetricSessionInvalidated, Name: "authguard_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: authguard.MetricLogoutAll, Name: "authguard_logout_all_total", Help: "Logout-all operations."},
	{ID: authguard.MetricMFARequired, Name: "authguard_mfa_required_total", Help: "Logins paused for a second factor."},
	{ID: authguard.MetricTOTPSuccess, Name: "authguard_totp_success_total", Help: "Successful TOTP verifications."},
	{ID: authguard.MetricTOTPFailure, Name: "authguard_totp_failure_total", Help: "Failed TOTP verifications."},
	{ID: authguard.MetricBackupCodeUsed, Name: "authguard_backup_code_used_total", Help: "Backup codes consumed."},
	{ID: authguard.MetricRateLimitHit, Name: "authguard_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: authguard.MetricLockoutArmed, Name: "authguard_lockout_armed_total", Help: "Identifiers transitioned into lockout."},
	{ID: authguard.MetricSuspiciousLogin, Name: "authguard_suspicious_login_total", Help: "Login attempts flagged by the suspicion heuristics."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authguard.MetricVerifyLatency, Name: "authguard_verify_latency_seconds", Help: "VerifyAccess latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds as rendered in
// Prometheus le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds using only characters that
// are legal in OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms use.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
