package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts fixed windows in Redis so several server processes can
// share one ceiling. INCR is atomic on the server side; PEXPIRE NX arms the
// window TTL exactly once per window regardless of which client lands first.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisStoreOption func(*RedisStore)

func WithPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "ratelimit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implements Store.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := s.prefix + ":" + key

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	// go-redis has no typed PExpireNX helper; issue the same command raw.
	pipe.Do(ctx, "pexpire", redisKey, window.Milliseconds(), "NX")
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis pipeline: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// PTTL of -1 means a lost expiry; treat as a full window rather than
		// a counter that never resets.
		remaining = window
		_ = s.rdb.PExpire(ctx, redisKey, window).Err()
	}

	return incr.Val(), time.Now().Add(remaining), nil
}
