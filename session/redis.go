package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/authcore/clock"
	"github.com/redis/go-redis/v9"
)

const (
	minRowTTL        = time.Second
	defaultRetention = 24 * time.Hour
)

// The user id starts at byte 3 of an encoded row (after version and length).
const deleteSessionScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
redis.call("DEL", KEYS[1])
local user_len = string.byte(data, 2)
if user_len then
  local user_id = string.sub(data, 3, 2 + user_len)
  redis.call("SREM", ARGV[2] .. user_id, ARGV[1])
end
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

const saveSessionScript = `
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
redis.call("SADD", KEYS[2], ARGV[1])
if redis.call("PTTL", KEYS[2]) < tonumber(ARGV[3]) then
  redis.call("PEXPIRE", KEYS[2], ARGV[3])
end
return 1
`

var saveSessionLua = redis.NewScript(saveSessionScript)

const rotateSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[1])
redis.call("SET", KEYS[2], ARGV[3], "PX", ARGV[4])
redis.call("SADD", KEYS[3], ARGV[2])
if redis.call("PTTL", KEYS[3]) < tonumber(ARGV[4]) then
  redis.call("PEXPIRE", KEYS[3], ARGV[4])
end
return 1
`

var rotateSessionLua = redis.NewScript(rotateSessionScript)

// RedisStore implements [Store] on Redis.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	clock     clock.Clock
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithRetention sets how long a row is kept past its refresh deadline.
func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// WithClock sets the time source used to compute row TTLs.
func WithClock(c clock.Clock) RedisOption {
	return func(s *RedisStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewRedisStore returns a store keyed under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, opts ...RedisOption) *RedisStore {
	if prefix == "" {
		prefix = "authcore"
	}
	s := &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: defaultRetention,
		clock:     clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *RedisStore) userPrefix() string {
	return s.prefix + ":u:"
}

func (s *RedisStore) userKey(userID string) string {
	return s.userPrefix() + userID
}

func (s *RedisStore) ttl(sess *Session) time.Duration {
	ttl := sess.ExpiresAt.Sub(s.clock.Now()) + s.retention
	if ttl < minRowTTL {
		ttl = minRowTTL
	}
	return ttl
}

// Save writes the row and indexes it under the user.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	err = saveSessionLua.Run(ctx, s.redis,
		[]string{s.key(sess.SessionID), s.userKey(sess.UserID)},
		sess.SessionID, data, s.ttl(sess).Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// FindByUserAndSession loads one row and checks ownership.
func (s *RedisStore) FindByUserAndSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotFound
	}
	sess.SessionID = sessionID
	return sess, nil
}

// FindAllByUser reads the user index and the rows it points at. Index
// members whose row has vanished are pruned.
func (s *RedisStore) FindAllByUser(ctx context.Context, userID string) ([]*Session, error) {
	userKey := s.userKey(userID)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]*Session, 0, len(ids))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		sess, err := Decode([]byte(raw))
		if err != nil || sess.UserID != userID {
			stale = append(stale, ids[i])
			continue
		}
		sess.SessionID = ids[i]
		out = append(out, sess)
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteBySession removes the row and its index entry. Missing rows are a no-op.
func (s *RedisStore) DeleteBySession(ctx context.Context, sessionID string) error {
	err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(sessionID)}, sessionID, s.userPrefix()).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllByUser removes every indexed row of the user.
//
// The index is read before the transactional delete, so a session saved
// between the two steps survives this call.
func (s *RedisStore) DeleteAllByUser(ctx context.Context, userID string) ([]string, error) {
	userKey := s.userKey(userID)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.key(id))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Rotate swaps the old row for next atomically.
func (s *RedisStore) Rotate(ctx context.Context, oldSessionID string, next *Session) error {
	data, err := Encode(next)
	if err != nil {
		return err
	}
	res, err := rotateSessionLua.Run(ctx, s.redis,
		[]string{s.key(oldSessionID), s.key(next.SessionID), s.userKey(next.UserID)},
		oldSessionID, next.SessionID, data, s.ttl(next).Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}
