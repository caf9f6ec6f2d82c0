// Package cache implements the Cache contract (spec.md §4.3): a
// TTL-bounded symbol -> PriceReading store, with two interchangeable
// backends (an in-process map and a remote Redis store) behind the same
// interface, plus the CachedFetcher composition (spec.md §4.4) that adds
// single-flight collapsing of concurrent misses.
package cache

import (
	"context"
	"time"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// DefaultTTL is the process-wide cache lifetime (spec.md §4.3: "default
// 10 s").
const DefaultTTL = 10 * time.Second

// KeyPrefix is prepended to every symbol to form the backing-store key
// (spec.md §4.3: `Put` stores by key "price:{symbol}").
const KeyPrefix = "price:"

func key(symbol string) string {
	return KeyPrefix + symbol
}

// Cache is the symbol -> PriceReading store. Implementations must be safe
// for concurrent use. A remote implementation may fail any operation with
// an error wrapping types.ErrCacheBackend; callers must treat that as
// "cache disabled for this request," never as fatal.
type Cache interface {
	Get(ctx context.Context, symbol string) (types.PriceReading, bool, error)
	Put(ctx context.Context, reading types.PriceReading) error
	Delete(ctx context.Context, symbol string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (types.CacheStats, error)
	Healthy(ctx context.Context) bool
}
