package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store shared by every instance through Redis.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a RedisStore. Keys are namespaced under prefix.
func NewRedisStore(rdb *redis.Client, ttl time.Duration, prefix string) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "roombooking"
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: prefix + ":"}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// InvalidatePrefix implements Store using SCAN so large keyspaces are not
// blocked by KEYS.
func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	match := s.prefix + prefix + "*"
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return fmt.Errorf("%w: scan %s: %v", ErrUnavailable, match, err)
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: del %s: %v", ErrUnavailable, match, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
