// Package cache provides byte-oriented caching backends for registry responses.
//
// Every backend implements [Cache]. The CLI picks one at startup:
//
//   - [FileCache]: one JSON file per entry under ~/.cache/pypigraph (default)
//   - [MemoryCache]: in-process cache with expiry, useful for long-running serve loops
//   - [RedisCache]: shared cache for several mirror instances
//   - [NullCache]: caching disabled
//
// The package also owns the retry helpers used by the HTTP clients, see
// [RetryWithBackoff] and [Retryable].
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads under string keys.
//
// Implementations must be safe for concurrent use; the reconciler fetches
// package metadata from several goroutines at once.
type Cache interface {
	// Get returns the payload stored under key. The boolean reports a hit;
	// a miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
