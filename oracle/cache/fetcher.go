package cache

import (
	"context"
	"errors"

	"github.com/cosmos/cosmos-sdk/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// Produce is the lazy supplier invoked only on a cache miss (spec.md §4.4).
type Produce func(ctx context.Context) (types.PriceReading, error)

// Fetcher implements the CachedFetcher contract (spec.md §4.4):
// cache-check -> aggregator-on-miss -> cache-fill, with single-flight
// collapsing of concurrent misses for the same symbol. This is the one
// coordination primitive spec.md §9 calls out as genuinely new: "the only
// coordination primitive that must be introduced."
type Fetcher struct {
	cache  Cache
	group  singleflight.Group
	logger zerolog.Logger
}

func NewFetcher(c Cache, logger zerolog.Logger) *Fetcher {
	return &Fetcher{cache: c, logger: logger.With().Str("component", "cached_fetcher").Logger()}
}

// Get implements spec.md §4.4's three-step semantics: check the cache;
// on miss, acquire the per-symbol single-flight slot, re-check, and invoke
// produce; on success, fill the cache; cache errors degrade to miss/are
// swallowed rather than failing the request.
func (f *Fetcher) Get(ctx context.Context, symbol string, produce Produce) (types.PriceReading, error) {
	if reading, hit, err := f.cache.Get(ctx, symbol); err != nil {
		f.logger.Warn().Str("symbol", symbol).Err(err).Msg("cache get failed, treating as miss")
		telemetry.IncrCounter(1, "cache", "backend_error")
	} else if hit {
		telemetry.IncrCounter(1, "cache", "hit")
		return reading, nil
	}

	v, err, shared := f.group.Do(symbol, func() (any, error) {
		if reading, hit, err := f.cache.Get(ctx, symbol); err == nil && hit {
			return reading, nil
		}

		telemetry.IncrCounter(1, "cache", "miss")
		reading, err := produce(ctx)
		if err != nil {
			return types.PriceReading{}, err
		}

		if putErr := f.cache.Put(ctx, reading); putErr != nil {
			f.logger.Warn().Str("symbol", symbol).Err(putErr).Msg("cache put failed, serving uncached reading")
		}
		return reading, nil
	})
	if shared {
		telemetry.IncrCounter(1, "cache", "singleflight_shared")
	}
	if err != nil {
		return types.PriceReading{}, err
	}

	reading, ok := v.(types.PriceReading)
	if !ok {
		return types.PriceReading{}, errors.New("cache: unexpected singleflight result type")
	}
	return reading, nil
}
