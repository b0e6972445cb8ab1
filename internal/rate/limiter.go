package rate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Identifier types tracked by the login throttle.
const (
	KindEmail = "email"
	KindIP    = "ip"
)

const (
	// DefaultMaxAttempts is the failure budget per identifier and window.
	DefaultMaxAttempts = 5
	// DefaultAttemptWindow is the fixed window over which failures accumulate.
	DefaultAttemptWindow = 15 * time.Minute
	// DefaultLockoutDuration is how long an identifier stays locked once the
	// budget is exhausted.
	DefaultLockoutDuration = 15 * time.Minute
	// DefaultOpTimeout bounds each Redis round trip.
	DefaultOpTimeout = 5 * time.Second
)

const (
	attemptLogKey = "login_attempts"
	attemptLogCap = 1000
	scanBatch     = 1000
)

// Config holds throttle tuning parameters. Zero values fall back to the
// package defaults.
type Config struct {
	MaxAttempts     int
	AttemptWindow   time.Duration
	LockoutDuration time.Duration
	OpTimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = DefaultAttemptWindow
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = DefaultLockoutDuration
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = DefaultOpTimeout
	}
	return c
}

// Limiter enforces per-email and per-IP login limits, named action quotas,
// and the bounded attempt log using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg.withDefaults(),
	}
}

func (l *Limiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.config.OpTimeout)
}

// Status describes the throttle state of one identifier. ResetAt is the
// lockout deadline when Limited, otherwise the end of the current counting
// window (zero if no window is open). Armed is set on the one check that
// transitioned the identifier into lockout.
type Status struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
	Armed     bool
}

// Attempt is one entry of the bounded login attempt log.
type Attempt struct {
	Email     string    `json:"email"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Success   bool      `json:"success"`
	At        time.Time `json:"at"`
}

// bumpLua increments a fixed-window counter and arms the window TTL for the
// first hit in the same script.
var bumpLua = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Check reports whether the identifier may attempt a login. Reaching the
// failure budget arms a lockout marker, so the answer stays negative for the
// full lockout duration even after the counter's window expires.
func (l *Limiter) Check(ctx context.Context, kind, identifier string) Status {
	if identifier == "" {
		return Status{Remaining: l.config.MaxAttempts}
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	status, err := l.check(ctx, kind, identifier, time.Now())
	if err != nil {
		log.Print("authguard: rate limit check unavailable, failing open")
		return Status{Remaining: l.config.MaxAttempts}
	}
	return status
}

func (l *Limiter) check(ctx context.Context, kind, identifier string, now time.Time) (Status, error) {
	raw, err := l.redis.Get(ctx, lockoutKey(kind, identifier)).Result()
	if err == nil {
		deadline, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			// A garbled deadline still locks out for the configured horizon.
			return Status{Limited: true, ResetAt: now.Add(l.config.LockoutDuration)}, nil
		}
		return Status{Limited: true, ResetAt: time.Unix(deadline, 0)}, nil
	}
	if !errors.Is(err, redis.Nil) {
		return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, window, err := l.counterWithTTL(ctx, counterKey(kind, identifier))
	if err != nil {
		return Status{}, err
	}

	if count >= l.config.MaxAttempts {
		resetAt := now.Add(l.config.LockoutDuration)
		if err := l.redis.Set(ctx, lockoutKey(kind, identifier), resetAt.Unix(), l.config.LockoutDuration).Err(); err != nil {
			return Status{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return Status{Limited: true, ResetAt: resetAt, Armed: true}, nil
	}

	status := Status{Remaining: l.config.MaxAttempts - count}
	if window > 0 {
		status.ResetAt = now.Add(window)
	}
	return status, nil
}

// RecordAttempt appends one entry to the attempt log and updates the failure
// counters. A failed attempt increments the email and IP counters; a
// successful one clears their counters and lockout markers.
func (l *Limiter) RecordAttempt(ctx context.Context, email, ip, userAgent string, success bool) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if err := l.recordAttempt(ctx, email, ip, userAgent, success, time.Now()); err != nil {
		log.Print("authguard: login attempt recording unavailable")
	}
}

func (l *Limiter) recordAttempt(ctx context.Context, email, ip, userAgent string, success bool, now time.Time) error {
	if err := l.appendAttempt(ctx, Attempt{
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Success:   success,
		At:        now,
	}); err != nil {
		return err
	}

	if success {
		keys := make([]string, 0, 4)
		if email != "" {
			keys = append(keys, counterKey(KindEmail, email), lockoutKey(KindEmail, email))
		}
		if ip != "" {
			keys = append(keys, counterKey(KindIP, ip), lockoutKey(KindIP, ip))
		}
		if len(keys) == 0 {
			return nil
		}
		if err := l.redis.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}

	if email != "" {
		if _, err := l.bumpCounter(ctx, counterKey(KindEmail, email), l.config.AttemptWindow); err != nil {
			return err
		}
	}
	if ip != "" {
		if _, err := l.bumpCounter(ctx, counterKey(KindIP, ip), l.config.AttemptWindow); err != nil {
			return err
		}
	}
	return nil
}

// RecentAttempts returns up to n entries of the attempt log, newest first.
// Entries that fail to decode are skipped.
func (l *Limiter) RecentAttempts(ctx context.Context, n int) ([]Attempt, error) {
	if n <= 0 || n > attemptLogCap {
		n = attemptLogCap
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	raws, err := l.redis.LRange(ctx, attemptLogKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	attempts := make([]Attempt, 0, len(raws))
	for _, raw := range raws {
		var at Attempt
		if err := json.Unmarshal([]byte(raw), &at); err != nil {
			continue
		}
		attempts = append(attempts, at)
	}
	return attempts, nil
}

func (l *Limiter) appendAttempt(ctx context.Context, at Attempt) error {
	raw, err := json.Marshal(at)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}

	_, err = l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, attemptLogKey, raw)
		pipe.LTrim(ctx, attemptLogKey, 0, attemptLogCap-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) bumpCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := bumpLua.Run(ctx, l.redis, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

// counterWithTTL reads a counter and its remaining window in one round trip.
// Missing keys report zero with no window.
func (l *Limiter) counterWithTTL(ctx context.Context, key string) (int, time.Duration, error) {
	var (
		getCmd *redis.StringCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := l.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, err := getCmd.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	window, err := ttlCmd.Result()
	if err != nil || window < 0 {
		window = 0
	}
	return int(count), window, nil
}

func counterKey(kind, identifier string) string {
	return "rate_limit:" + kind + ":" + identifier
}

func lockoutKey(kind, identifier string) string {
	return "lockout:" + kind + ":" + identifier
}

func actionKey(action, identifier string) string {
	return "action_limit:" + action + ":" + identifier
}

func recentIPsKey(email string) string {
	return "recent_ips:" + email
}
