package rate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	recentIPWindow  = time.Hour
	distinctIPLimit = 3
	ipFailureAlarm  = 20
	minAgentLength  = 10
)

// botMarkers flag scripted clients. Matched case-insensitively against the
// whole User-Agent string.
var botMarkers = []string{
	"curl", "wget", "python", "bot", "crawler", "spider",
	"scrapy", "headless", "phantomjs", "selenium", "java", "go-http",
}

// Suspicion is the outcome of the abuse heuristics for one login attempt.
type Suspicion struct {
	Suspicious bool
	Reasons    []string
}

// IPActivity pairs an IP with its current failure count.
type IPActivity struct {
	IP       string
	Failures int
}

// DetectSuspicious runs the abuse heuristics for a login attempt: scripted
// or truncated user agents, too many distinct IPs per account within the
// rolling hour, and IPs with excessive failures. The call also records the
// IP against the account's recent set. User-agent checks are local and keep
// working when Redis is down.
func (l *Limiter) DetectSuspicious(ctx context.Context, email, ip, userAgent string) Suspicion {
	var reasons []string
	if reason, flagged := agentReason(userAgent); flagged {
		reasons = append(reasons, reason)
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	distinct, failures, err := l.observeIP(ctx, email, ip)
	if err != nil {
		log.Print("authguard: suspicion heuristics degraded, store unavailable")
	} else {
		if distinct > distinctIPLimit {
			reasons = append(reasons, fmt.Sprintf("account seen from %d IPs in the last hour", distinct))
		}
		if failures > ipFailureAlarm {
			reasons = append(reasons, fmt.Sprintf("%d failed attempts from IP in the current window", failures))
		}
	}

	return Suspicion{Suspicious: len(reasons) > 0, Reasons: reasons}
}

func agentReason(userAgent string) (string, bool) {
	if len(userAgent) < minAgentLength {
		return "missing or truncated user agent", true
	}
	lowered := strings.ToLower(userAgent)
	for _, marker := range botMarkers {
		if strings.Contains(lowered, marker) {
			return "scripted user agent", true
		}
	}
	return "", false
}

// observeIP adds the IP to the account's rolling set, refreshes the window,
// and reads the distinct IP count plus the IP's failure counter.
func (l *Limiter) observeIP(ctx context.Context, email, ip string) (distinct int64, failures int, err error) {
	if email == "" {
		return 0, 0, nil
	}

	var (
		countCmd *redis.IntCmd
		failCmd  *redis.StringCmd
	)
	_, err = l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if ip != "" {
			pipe.SAdd(ctx, recentIPsKey(email), ip)
		}
		pipe.Expire(ctx, recentIPsKey(email), recentIPWindow)
		countCmd = pipe.SCard(ctx, recentIPsKey(email))
		if ip != "" {
			failCmd = pipe.Get(ctx, counterKey(KindIP, ip))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	distinct = countCmd.Val()
	if failCmd != nil {
		if n, err := failCmd.Int64(); err == nil {
			failures = int(n)
		}
	}
	return distinct, failures, nil
}

// Block locks out an identifier for the given duration regardless of its
// counter. A non-positive duration falls back to the configured lockout.
func (l *Limiter) Block(ctx context.Context, kind, identifier string, d time.Duration) error {
	if identifier == "" {
		return nil
	}
	if d <= 0 {
		d = l.config.LockoutDuration
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	deadline := time.Now().Add(d)
	if err := l.redis.Set(ctx, lockoutKey(kind, identifier), deadline.Unix(), d).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Unblock clears the lockout marker and failure counter for an identifier.
func (l *Limiter) Unblock(ctx context.Context, kind, identifier string) error {
	if identifier == "" {
		return nil
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if err := l.redis.Del(ctx, lockoutKey(kind, identifier), counterKey(kind, identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ListSuspiciousIPs returns every IP whose failure counter is at or above
// the threshold, busiest first. A non-positive threshold uses the default
// alarm level.
func (l *Limiter) ListSuspiciousIPs(ctx context.Context, threshold int) ([]IPActivity, error) {
	if threshold <= 0 {
		threshold = ipFailureAlarm
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	prefix := counterKey(KindIP, "")
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := l.redis.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(keys))
	_, err := l.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.Get(ctx, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	activity := make([]IPActivity, 0, len(keys))
	for i, cmd := range cmds {
		count, err := cmd.Int64()
		if err != nil || int(count) < threshold {
			continue
		}
		activity = append(activity, IPActivity{
			IP:       strings.TrimPrefix(keys[i], prefix),
			Failures: int(count),
		})
	}
	sort.Slice(activity, func(i, j int) bool {
		if activity[i].Failures != activity[j].Failures {
			return activity[i].Failures > activity[j].Failures
		}
		return activity[i].IP < activity[j].IP
	})
	return activity, nil
}
