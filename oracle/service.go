// Package oracle wires the SourceAdapter/Aggregator/Cache/CachedFetcher/
// HistoryStore/HealthTracker components (spec.md §2) into the single
// Service the HTTP front-end calls.
package oracle

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kujira-labs/oracle-backend/oracle/aggregator"
	"github.com/kujira-labs/oracle-backend/oracle/cache"
	"github.com/kujira-labs/oracle-backend/oracle/health"
	"github.com/kujira-labs/oracle-backend/oracle/history"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// Service is the control flow spec.md §2 describes: HTTP -> CachedFetcher
// -> (hit: return) | (miss: Aggregator -> Cache.Put -> HistoryStore.Append
// -> HealthTracker) -> HTTP response. All fields are shared across
// concurrent requests; each owns its own internal synchronization.
type Service struct {
	aggregator *aggregator.Aggregator
	fetcher    *cache.Fetcher
	cacheImpl  cache.Cache
	store      history.Store
	tracker    *health.Tracker
	logger     zerolog.Logger
}

func New(agg *aggregator.Aggregator, fetcher *cache.Fetcher, cacheImpl cache.Cache, store history.Store, tracker *health.Tracker, logger zerolog.Logger) *Service {
	return &Service{
		aggregator: agg,
		fetcher:    fetcher,
		cacheImpl:  cacheImpl,
		store:      store,
		tracker:    tracker,
		logger:     logger.With().Str("component", "oracle_service").Logger(),
	}
}

// GetConsensusPrice implements spec.md §2's control flow for a single
// symbol: cache hit returns immediately; on miss the aggregator runs,
// a PriceDeviation failure persists the accompanying DeviationAlert
// best-effort, and a successful consensus is persisted to HistoryStore
// before being cached and returned.
func (s *Service) GetConsensusPrice(ctx context.Context, symbol string) (types.PriceReading, error) {
	return s.fetcher.Get(ctx, symbol, func(ctx context.Context) (types.PriceReading, error) {
		reading, alert, err := s.aggregator.Consensus(ctx, symbol)
		if err != nil {
			if alert != nil {
				if aErr := s.store.AppendDeviationAlert(ctx, *alert); aErr != nil {
					s.logger.Warn().Str("symbol", symbol).Err(aErr).Msg("failed to persist deviation alert")
				}
			}
			return types.PriceReading{}, err
		}

		if aErr := s.store.Append(ctx, reading); aErr != nil {
			s.logger.Warn().Str("symbol", symbol).Err(aErr).Msg("failed to persist consensus reading")
		}
		return reading, nil
	})
}

// PriceResult pairs a symbol with its outcome for the batched endpoint.
type PriceResult struct {
	Symbol  string
	Reading types.PriceReading
	Err     error
}

// GetPrices fetches every symbol concurrently (each independently
// cache-checked and single-flight-protected); a failure for one symbol
// never blocks the others.
func (s *Service) GetPrices(ctx context.Context, symbols []string) []PriceResult {
	results := make([]PriceResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			reading, err := s.GetConsensusPrice(gctx, symbol)
			results[i] = PriceResult{Symbol: symbol, Reading: reading, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) GetHistory(ctx context.Context, symbol string, limit int, start, end *int64) ([]types.HistoryRecord, error) {
	if start != nil && end != nil {
		return s.store.GetRange(ctx, symbol, *start, *end)
	}
	return s.store.GetRecent(ctx, symbol, limit)
}

func (s *Service) GetStats(ctx context.Context, symbol string, start, end int64) (types.Stats, error) {
	return s.store.GetStats(ctx, symbol, start, end)
}

func (s *Service) ClearCache(ctx context.Context) error {
	return s.cacheImpl.Clear(ctx)
}

func (s *Service) CacheStats(ctx context.Context) (types.CacheStats, error) {
	return s.cacheImpl.Stats(ctx)
}

// Health is the liveness report for /api/v1/health: DB, cache, and each
// oracle's fast-path status from HealthTracker.
type Health struct {
	Store   bool
	Cache   bool
	Oracles []types.HealthSnapshot
}

func (s *Service) Health(ctx context.Context) Health {
	return Health{
		Store:   s.store.Healthy(ctx),
		Cache:   s.cacheImpl.Healthy(ctx),
		Oracles: s.tracker.All(),
	}
}

// OracleHealth returns the detailed per-source rows for
// /api/v1/health/oracles: the cumulative oracle_health rows from
// HistoryStore. The in-memory HealthTracker snapshot is not merged in.
func (s *Service) OracleHealth(ctx context.Context) ([]types.OracleHealthRow, error) {
	return s.store.GetAllHealth(ctx)
}

// RunRetentionSweep calls PruneBefore once, on the interval/max-age the
// caller supplies, until ctx is cancelled -- the periodic background task
// spec.md §4.5 describes ("called from a periodic background task") but
// which the original implementation's main.rs never actually wired up
// (SPEC_FULL §4 supplements the caller).
func (s *Service) RunRetentionSweep(ctx context.Context, interval, maxAge time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cutoff := time.Now().Add(-maxAge).Unix()
			n, err := s.store.PruneBefore(ctx, cutoff)
			if err != nil {
				s.logger.Error().Err(err).Msg("retention sweep failed")
				continue
			}
			if n > 0 {
				s.logger.Info().Int64("rows_deleted", n).Msg("retention sweep pruned old history")
			}
		}
	}
}

