// Package cache holds the key/value stores behind the todo list cache.
// A ttl <= 0 stores an entry without expiry.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get returns the value and whether a live entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// now is replaced in tests.
var now = time.Now

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now().Add(ttl)
}

func expired(at time.Time) bool {
	return !at.IsZero() && !now().Before(at)
}
