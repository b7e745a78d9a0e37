package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the key-value backend is unreachable or an
// operation against it failed.
var ErrUnavailable = errors.New("key-value store unavailable")

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("key not found")

const scanBatch = 1000

// Store is a thin adapter over the Redis client exposing the subset of
// primitives the platform services use: string values with TTLs, bounded
// lists, sets, and pattern scans. Every error is wrapped in either
// [ErrNotFound] or [ErrUnavailable] so callers can branch without knowing
// the client's error surface.
type Store struct {
	redis redis.UniversalClient
}

// New creates a [Store] backed by the given Redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

// Get returns the raw bytes stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Set writes value under key with the given TTL. A nonpositive TTL stores
// the key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Del removes the given keys and reports how many existed.
func (s *Store) Del(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Expire resets the TTL of key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return d, nil
}

// LPush prepends values to the list at key.
func (s *Store) LPush(ctx context.Context, key string, values ...[]byte) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.redis.LPush(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// LTrim bounds the list at key to the inclusive range [start, stop].
func (s *Store) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := s.redis.LTrim(ctx, key, start, stop).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// LRange returns the list entries in the inclusive range [start, stop].
// A missing key yields an empty slice, not an error.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := s.redis.LRange(ctx, key, start, stop).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return [][]byte{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// SAdd adds members to the set at key.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.redis.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SMembers returns all members of the set at key. A missing key yields an
// empty slice.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.redis.SMembers(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return members, nil
}

// SRem removes members from the set at key.
func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.redis.SRem(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SCard returns the size of the set at key.
func (s *Store) SCard(ctx context.Context, key string) (int, error) {
	n, err := s.redis.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// Scan walks all keys matching pattern. This is an O(n) admin operation
// and must not be used in request hot paths.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Ping round-trips the backend and returns the observed latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

// Info returns the raw INFO output for the given section.
func (s *Store) Info(ctx context.Context, section string) (string, error) {
	out, err := s.redis.Info(ctx, section).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// DBSize returns the total number of keys in the current database.
func (s *Store) DBSize(ctx context.Context) (int64, error) {
	n, err := s.redis.DBSize(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
