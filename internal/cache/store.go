package cache

import (
	"context"
	"time"
)

// Store is the narrow cache-store surface the pipeline needs. Backed by
// Redis in production and by an in-process map in tests and degraded mode.
// Cache errors are never a correctness dependency: callers log and move on.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)
	// SAdd adds members to a set and refreshes its TTL.
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	// Incr increments a counter key, setting its expiry on first increment.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}
