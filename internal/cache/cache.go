// Package cache provides a Redis-backed read-through cache for recap
// windows and user stats snapshots.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the key-value interface consumed by the services. Get returns
// an empty string for missing keys.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RecapKey builds the cache key for a recap window.
func RecapKey(userUID, start, end string) string {
	return fmt.Sprintf("recap:%s:%s:%s", userUID, start, end)
}

// StatsKey builds the cache key for a user stats snapshot.
func StatsKey(userUID string) string {
	return fmt.Sprintf("stats:%s", userUID)
}
