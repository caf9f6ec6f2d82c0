// Package aggregator implements the Aggregator contract (spec.md §4.2):
// concurrent fan-out across registered SourceAdapters, per-reading
// validation, median consensus, and a deviation gate.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cosmos/cosmos-sdk/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kujira-labs/oracle-backend/oracle/adapter"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// Config holds the process-wide tunables from spec.md §3 ConsensusConfig.
type Config struct {
	MaxPriceAgeSeconds int64
	MaxConfidenceBps   int64
	MaxDeviationBps    int64
}

// HealthRecorder is the capability the aggregator needs after every adapter
// observation; declared here so the aggregator never imports a concrete
// implementation, only its behavior. ctx lets an implementation persist the
// observation (e.g. to HistoryStore) without the aggregator knowing or
// caring that it does.
type HealthRecorder interface {
	RecordSuccess(ctx context.Context, kind types.OracleKind)
	RecordFailure(ctx context.Context, kind types.OracleKind)
}

// Aggregator is immutable after construction and needs no lock of its own
// (spec.md §9: "the aggregator is immutable after registration"); the
// adapters it holds carry their own internal synchronization.
type Aggregator struct {
	adapters []adapter.Adapter
	health   HealthRecorder
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

// Option customizes an Aggregator at construction time.
type Option func(*Aggregator)

// WithClock overrides the wall-clock source; used by tests to pin "now" and
// avoid boundary flakiness around the staleness threshold.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(adapters []adapter.Adapter, health HealthRecorder, cfg Config, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		adapters: adapters,
		health:   health,
		cfg:      cfg,
		logger:   logger.With().Str("component", "aggregator").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type discarded struct {
	reading types.PriceReading
	reason  error
}

// Consensus fetches symbol from every registered adapter concurrently,
// validates and combines the survivors via the median rule, and enforces
// the deviation gate. On PriceDeviation it also returns the DeviationAlert
// the caller is expected to persist (spec.md §4.2 step 6).
func (a *Aggregator) Consensus(ctx context.Context, symbol string) (types.PriceReading, *types.DeviationAlert, error) {
	defer telemetry.MeasureSince(a.now(), "aggregator", "consensus")

	readings := a.fanOut(ctx, symbol)
	if len(readings) == 0 {
		telemetry.IncrCounter(1, "aggregator", "no_price_data")
		return types.PriceReading{}, nil, fmt.Errorf("%w: %s", types.ErrNoPriceData, symbol)
	}

	survivors, discards := a.validate(readings)
	if len(survivors) == 0 {
		for _, d := range discards {
			a.logger.Debug().Str("symbol", symbol).Str("source", d.reading.Source.String()).
				Err(d.reason).Msg("reading discarded")
		}
		telemetry.IncrCounter(1, "aggregator", "no_price_data")
		return types.PriceReading{}, nil, fmt.Errorf("%w: %s (all readings invalid)", types.ErrNoPriceData, symbol)
	}

	consensus := medianConsensus(symbol, survivors)

	if alert := a.checkDeviation(symbol, consensus, survivors); alert != nil {
		telemetry.IncrCounter(1, "aggregator", "price_deviation")
		return types.PriceReading{}, alert, fmt.Errorf("%w: %s", types.ErrPriceDeviation, symbol)
	}

	telemetry.IncrCounter(1, "aggregator", "consensus_success")
	return consensus, nil, nil
}

// fanOut invokes Fetch on every adapter concurrently, swallows per-source
// failures (recording them in HealthTracker), and returns only the readings
// that were fetched successfully. Per spec.md §7, SourceFetch errors are
// never surfaced if at least one source succeeds.
func (a *Aggregator) fanOut(ctx context.Context, symbol string) []types.PriceReading {
	results := make([]types.PriceReading, len(a.adapters))
	ok := make([]bool, len(a.adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, ad := range a.adapters {
		i, ad := i, ad
		g.Go(func() error {
			reading, err := ad.Fetch(gctx, symbol)
			if err != nil {
				telemetry.IncrCounter(1, "aggregator", "source_fetch_failure")
				a.health.RecordFailure(gctx, ad.Kind())
				a.logger.Debug().Str("symbol", symbol).Str("source", ad.Kind().String()).
					Err(err).Msg("source fetch failed")
				return nil
			}
			a.health.RecordSuccess(gctx, ad.Kind())
			results[i] = reading
			ok[i] = true
			return nil
		})
	}
	// errgroup's g.Wait() error is always nil here: every Go closure
	// returns nil so one adapter's failure never aborts the others'
	// in-flight fetches.
	_ = g.Wait()

	survivors := make([]types.PriceReading, 0, len(a.adapters))
	for i, present := range ok {
		if present {
			survivors = append(survivors, results[i])
		}
	}
	return survivors
}

// validate applies spec.md §4.2 step 3: discard stale readings, then
// discard low-confidence readings.
func (a *Aggregator) validate(readings []types.PriceReading) ([]types.PriceReading, []discarded) {
	now := a.now().Unix()
	survivors := make([]types.PriceReading, 0, len(readings))
	var discards []discarded

	for _, r := range readings {
		if now-r.Timestamp > a.cfg.MaxPriceAgeSeconds {
			discards = append(discards, discarded{r, types.ErrStale})
			continue
		}
		if r.ConfidenceBps() > a.cfg.MaxConfidenceBps {
			discards = append(discards, discarded{r, types.ErrLowConfidence})
			continue
		}
		survivors = append(survivors, r)
	}
	return survivors, discards
}

// checkDeviation implements spec.md §4.2 step 6: for every surviving
// reading compute its deviation from the consensus price; if any exceeds
// the threshold, build a DeviationAlert naming the reading furthest from
// the median and the median-anchor reading.
func (a *Aggregator) checkDeviation(symbol string, consensus types.PriceReading, survivors []types.PriceReading) *types.DeviationAlert {
	type scored struct {
		reading types.PriceReading
		bps     int64
	}
	worst := scored{bps: -1}
	violated := false

	for _, r := range survivors {
		bps := deviationBps(r.Price, consensus.Price)
		if bps > a.cfg.MaxDeviationBps {
			violated = true
		}
		if bps > worst.bps {
			worst = scored{r, bps}
		}
	}
	if !violated {
		return nil
	}

	return &types.DeviationAlert{
		Symbol:       symbol,
		Source1:      worst.reading.Source,
		Price1:       worst.reading.Price,
		Source2:      types.Aggregate,
		Price2:       consensus.Price,
		DeviationBps: worst.bps,
		ThresholdBps: a.cfg.MaxDeviationBps,
		Timestamp:    consensus.Timestamp,
	}
}

// sortedPrices returns a copy of readings stably sorted by ascending price,
// the same order medianConsensus sorts into. Nothing in the package calls it.
func sortedPrices(readings []types.PriceReading) []types.PriceReading {
	out := make([]types.PriceReading, len(readings))
	copy(out, readings)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LT(out[j].Price) })
	return out
}
