package authguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reachly/authguard/mfa"
)

func TestLoginSuccess(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	user := seedUser(t, engine, directory, "u1", "alice@example.com")
	ctx := uaCtx()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := engine.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if claims.UserID != user.UserID || claims.Email != user.Email || claims.Role != user.Role {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success counter = %d, want 1", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricSuspiciousLogin] != 0 {
		t.Fatalf("suspicious login counter = %d, want 0", snap.Counters[MetricSuspiciousLogin])
	}

	attempts, err := engine.RecentAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAttempts failed: %v", err)
	}
	if len(attempts) != 1 || !attempts[0].Success || attempts[0].Email != "alice@example.com" {
		t.Fatalf("attempt log mismatch: %+v", attempts)
	}
}

func TestLoginNormalizesEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "alice@example.com")

	if _, err := engine.Login(uaCtx(), "  ALICE@Example.COM  ", testPassword); err != nil {
		t.Fatalf("Login with unnormalized email failed: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "alice@example.com")
	ctx := uaCtx()

	if _, err := engine.Login(ctx, "alice@example.com", "Wr0ng!pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login with wrong password returned %v, want ErrInvalidCredentials", err)
	}

	if got := engine.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("login failure counter = %d, want 1", got)
	}

	attempts, err := engine.RecentAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAttempts failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Success {
		t.Fatalf("attempt log mismatch: %+v", attempts)
	}
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)

	_, err := engine.Login(uaCtx(), "nobody@example.com", testPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login for unknown email returned %v, want ErrInvalidCredentials", err)
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatal("Login leaked account existence through the error")
	}
}

func TestLoginValidationErrors(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "alice@example.com")
	ctx := uaCtx()

	if _, err := engine.Login(ctx, "   ", testPassword); !errors.Is(err, ErrValidation) {
		t.Fatalf("Login with blank email returned %v, want ErrValidation", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login with empty password returned %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginDirectoryErrorFailsClosed(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "alice@example.com")

	directory.findByEmailErr = errors.New("database down")

	if _, err := engine.Login(uaCtx(), "alice@example.com", testPassword); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Login during directory outage returned %v, want ErrStoreUnavailable", err)
	}
}

func TestLoginWithoutDirectory(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, nil)

	if _, err := engine.Login(uaCtx(), "alice@example.com", testPassword); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login without directory returned %v, want ErrEngineNotReady", err)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "alice@example.com")
	ctx := uaCtx()

	for i := 0; i < 5; i++ {
		if _, err := engine.Login(ctx, "alice@example.com", "Wr0ng!pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d returned %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// The next attempt trips the lockout, even with the right password.
	_, err := engine.Login(ctx, "alice@example.com", testPassword)
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("attempt past the limit returned %v, want *RateLimitedError", err)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatal("RateLimitedError does not unwrap to ErrRateLimited")
	}

	now := time.Now()
	if limited.ResetAt.Before(now.Add(14*time.Minute)) || limited.ResetAt.After(now.Add(16*time.Minute)) {
		t.Fatalf("ResetAt = %v, want about now+15m", limited.ResetAt)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLockoutArmed] != 1 {
		t.Fatalf("lockout armed counter = %d, want 1", snap.Counters[MetricLockoutArmed])
	}

	// Re-checking an armed lockout must not re-arm it.
	if _, err := engine.Login(ctx, "alice@example.com", testPassword); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second limited attempt returned %v, want ErrRateLimited", err)
	}
	snap = engine.MetricsSnapshot()
	if snap.Counters[MetricLockoutArmed] != 1 {
		t.Fatalf("lockout armed counter after re-check = %d, want 1", snap.Counters[MetricLockoutArmed])
	}
	if snap.Counters[MetricLoginRateLimited] != 2 {
		t.Fatalf("rate limited counter = %d, want 2", snap.Counters[MetricLoginRateLimited])
	}
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "alice@example.com")
	ctx := uaCtx()

	for round := 0; round < 2; round++ {
		for i := 0; i < 4; i++ {
			if _, err := engine.Login(ctx, "alice@example.com", "Wr0ng!pass"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("round %d failure %d returned %v", round, i+1, err)
			}
		}
		if _, err := engine.Login(ctx, "alice@example.com", testPassword); err != nil {
			t.Fatalf("round %d success blocked: %v", round, err)
		}
	}
}

func TestLoginIPLockoutSpansAccounts(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "victim@example.com")

	ctx := WithClientIP(uaCtx(), "203.0.113.9")

	// Five failures against five different accounts, one source address.
	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"} {
		if _, err := engine.Login(ctx, email, "Wr0ng!pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("probe %d returned %v", i+1, err)
		}
	}

	// The address is burned; even valid credentials for an untouched
	// account are refused from it.
	if _, err := engine.Login(ctx, "victim@example.com", testPassword); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("login from burned address returned %v, want ErrRateLimited", err)
	}

	// A clean address is unaffected.
	cleanCtx := WithClientIP(uaCtx(), "198.51.100.20")
	if _, err := engine.Login(cleanCtx, "victim@example.com", testPassword); err != nil {
		t.Fatalf("login from clean address failed: %v", err)
	}
}

func TestLoginSuspiciousAgentObservedNotBlocked(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine := newTestEngine(t, rdb, directory)
	seedUser(t, engine, directory, "u1", "alice@example.com")

	ctx := WithUserAgent(context.Background(), "curl/8.4.0 (x86_64-pc-linux-gnu)")

	if _, err := engine.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("suspicious login was blocked: %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricSuspiciousLogin]; got != 1 {
		t.Fatalf("suspicious login counter = %d, want 1", got)
	}
}

func TestLoginMFARequiredWithoutCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine, secret := newMFATestEngine(t, rdb, directory)
	seedMFAUser(t, engine, directory, secret)
	ctx := uaCtx()

	if _, err := engine.Login(ctx, "alice@example.com", testPassword); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("Login without code returned %v, want ErrMFARequired", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricMFARequired]; got != 1 {
		t.Fatalf("mfa required counter = %d, want 1", got)
	}

	// A correct password halted at the MFA gate must not count against
	// the account's failure budget.
	attempts, err := engine.RecentAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAttempts failed: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("MFA gate recorded %d attempts, want 0", len(attempts))
	}
}

func TestLoginWithTOTP(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine, secret := newMFATestEngine(t, rdb, directory)
	seedMFAUser(t, engine, directory, secret)
	ctx := uaCtx()

	code := totpCodeFor(t, secret)
	pair, err := engine.LoginWithTOTP(ctx, "alice@example.com", testPassword, code)
	if err != nil {
		t.Fatalf("LoginWithTOTP failed: %v", err)
	}
	if _, err := engine.VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricTOTPSuccess] != 1 {
		t.Fatalf("totp success counter = %d, want 1", snap.Counters[MetricTOTPSuccess])
	}
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success counter = %d, want 1", snap.Counters[MetricLoginSuccess])
	}
}

func TestLoginWithTOTPWrongCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	directory := newMockDirectory()
	engine, secret := newMFATestEngine(t, rdb, directory)
	seedMFAUser(t, engine, directory, secret)
	ctx := uaCtx()

	wrong := "000000"
	if wrong == totpCodeFor(t, secret) {
		wrong = "000001"
	}

	if _, err := engine.LoginWithTOTP(ctx, "alice@example.com", testPassword, wrong); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("LoginWithTOTP with wrong code returned %v, want ErrMFAInvalid", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricTOTPFailure]; got != 1 {
		t.Fatalf("totp failure counter = %d, want 1", got)
	}

	// Code guessing consumes the same budget as password guessing.
	attempts, err := engine.RecentAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAttempts failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Success {
		t.Fatalf("attempt log mismatch: %+v", attempts)
	}
}

func newMFATestEngine(t testing.TB, rdb *redis.Client, directory UserDirectory) (*Engine, string) {
	t.Helper()

	cfg := testConfig()
	cfg.MFA.Enabled = true
	cfg.MFA.Issuer = "authguard-test"

	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithUserDirectory(directory).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	setup, err := engine.GenerateTOTPSetup("alice@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSetup failed: %v", err)
	}
	return engine, setup.Secret
}

func seedMFAUser(t testing.TB, engine *Engine, directory *mockDirectory, secret string) {
	t.Helper()

	u := seedUser(t, engine, directory, "u1", "alice@example.com")
	u.MFAEnabled = true
	u.TOTPSecret = secret
	directory.put(u)
}

func totpCodeFor(t testing.TB, secret string) string {
	t.Helper()

	verifier, err := mfa.NewVerifier(mfa.Config{Issuer: "authguard-test"})
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	code, err := verifier.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	return code
}
