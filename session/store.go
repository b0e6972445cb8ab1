package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the requested session or refresh record does
// not exist (never created, expired, or already consumed).
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrCorrupt is returned when a stored record does not decode.
var ErrCorrupt = errors.New("session record corrupt")

const (
	sessionKeyPrefix = "session:"
	refreshKeyPrefix = "refresh_token:"

	// scanBatch is the COUNT hint for keyspace scans.
	scanBatch = 1000

	defaultOpTimeout = 5 * time.Second
)

// Store persists sessions and refresh records in Redis. Every operation runs
// under a bounded per-call timeout so a stalled Redis cannot hold request
// goroutines indefinitely.
type Store struct {
	redis     redis.UniversalClient
	opTimeout time.Duration
}

// NewStore creates a Store backed by the given Redis client. opTimeout bounds
// each Redis round trip; zero applies the 5s default.
func NewStore(client redis.UniversalClient, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Store{redis: client, opTimeout: opTimeout}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }
func refreshKey(sessionID string) string { return refreshKeyPrefix + sessionID }

// Save persists the session and its refresh record in one transaction with a
// shared TTL. Either both writes land or neither does, so a half-issued login
// can never exist.
func (s *Store) Save(ctx context.Context, sess *Session, rec *RefreshRecord, ttl time.Duration) error {
	if sess == nil || rec == nil {
		return errors.New("session and refresh record are required")
	}
	if sess.SessionID == "" || sess.SessionID != rec.SessionID {
		return errors.New("session IDs must match")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	sessData, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	recData, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.SessionID), sessData, ttl)
		pipe.Set(ctx, refreshKey(rec.SessionID), recData, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get returns the session if it exists. Missing keys report ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &sess, nil
}

// TouchLastAccess updates the session's lastAccessAt without disturbing its
// TTL. Missing sessions report ErrNotFound.
func (s *Store) TouchLastAccess(ctx context.Context, sessionID string, at time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := sessionKey(sessionID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	sess.LastAccessAt = at
	updated, err := json.Marshal(&sess)
	if err != nil {
		return err
	}

	// KEEPTTL preserves the absolute expiry set at login. Two concurrent
	// touches race benignly; the later timestamp wins.
	if err := s.redis.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetRefreshRecord returns the refresh record without consuming it.
func (s *Store) GetRefreshRecord(ctx context.Context, sessionID string) (*RefreshRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, refreshKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec RefreshRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &rec, nil
}

// ConsumeRefreshRecord atomically reads and deletes the refresh record
// (GETDEL), enforcing one-time use: of two concurrent redemptions exactly one
// receives the record and the other gets ErrNotFound.
func (s *Store) ConsumeRefreshRecord(ctx context.Context, sessionID string) (*RefreshRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.redis.GetDel(ctx, refreshKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec RefreshRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &rec, nil
}

// Delete removes the session and its refresh record. Deleting a session that
// does not exist is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sessionID))
		pipe.Del(ctx, refreshKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// DeleteAllForUser removes every session belonging to userID and returns how
// many sessions were deleted. This scans the session keyspace and is an
// administrative operation, not a hot path.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	sessions, err := s.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(sessions)*2)
	for _, sess := range sessions {
		keys = append(keys, sessionKey(sess.SessionID), refreshKey(sess.SessionID))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return len(sessions), nil
}

// ListForUser returns the user's live sessions, newest first. Blobs that do
// not decode are skipped so one corrupt entry cannot brick a device listing.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.redis.Scan(ctx, cursor, sessionKeyPrefix+"*", scanBatch).Result()
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
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(keys))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			// Expired between scan and read.
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.UserID != userID {
			continue
		}
		sessions = append(sessions, &sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// Ping reports Redis availability and round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
