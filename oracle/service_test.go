package oracle_test

import (
	"context"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kujira-labs/oracle-backend/oracle"
	"github.com/kujira-labs/oracle-backend/oracle/adapter"
	"github.com/kujira-labs/oracle-backend/oracle/aggregator"
	"github.com/kujira-labs/oracle-backend/oracle/cache"
	"github.com/kujira-labs/oracle-backend/oracle/health"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

type fakeAdapter struct {
	kind    types.OracleKind
	reading types.PriceReading
	err     error
}

func (f *fakeAdapter) Kind() types.OracleKind                    { return f.kind }
func (f *fakeAdapter) Register(symbol, feedAddress string) error { return nil }
func (f *fakeAdapter) Healthy(ctx context.Context) bool          { return f.err == nil }
func (f *fakeAdapter) Fetch(ctx context.Context, symbol string) (types.PriceReading, error) {
	if f.err != nil {
		return types.PriceReading{}, f.err
	}
	return f.reading, nil
}

type fakeStore struct {
	appended []types.PriceReading
	alerts   []types.DeviationAlert
	upserts  []types.OracleHealthRow
}

func (s *fakeStore) Append(ctx context.Context, r types.PriceReading) error {
	s.appended = append(s.appended, r)
	return nil
}
func (s *fakeStore) AppendBatch(ctx context.Context, rs []types.PriceReading) error {
	s.appended = append(s.appended, rs...)
	return nil
}
func (s *fakeStore) GetRecent(ctx context.Context, symbol string, limit int) ([]types.HistoryRecord, error) {
	return nil, nil
}
func (s *fakeStore) GetRange(ctx context.Context, symbol string, start, end int64) ([]types.HistoryRecord, error) {
	return nil, nil
}
func (s *fakeStore) GetStats(ctx context.Context, symbol string, start, end int64) (types.Stats, error) {
	return types.Stats{}, nil
}
func (s *fakeStore) UpsertHealth(ctx context.Context, row types.OracleHealthRow) error {
	s.upserts = append(s.upserts, row)
	return nil
}
func (s *fakeStore) GetHealth(ctx context.Context, src types.OracleKind) (types.OracleHealthRow, bool, error) {
	return types.OracleHealthRow{}, false, nil
}
func (s *fakeStore) GetAllHealth(ctx context.Context) ([]types.OracleHealthRow, error) { return nil, nil }
func (s *fakeStore) AppendDeviationAlert(ctx context.Context, a types.DeviationAlert) error {
	s.alerts = append(s.alerts, a)
	return nil
}
func (s *fakeStore) Healthy(ctx context.Context) bool { return true }
func (s *fakeStore) PruneBefore(ctx context.Context, ts int64) (int64, error) { return 0, nil }

func newTestService(adapters []adapter.Adapter, store *fakeStore) *oracle.Service {
	tracker := health.New()
	recorder := health.NewPersistentRecorder(tracker, store, zerolog.Nop())
	agg := aggregator.New(adapters, recorder, aggregator.Config{MaxPriceAgeSeconds: 30, MaxConfidenceBps: 100, MaxDeviationBps: 100}, zerolog.Nop())
	mem := cache.NewMemory(10 * time.Second)
	fetcher := cache.NewFetcher(mem, zerolog.Nop())
	return oracle.New(agg, fetcher, mem, store, tracker, zerolog.Nop())
}

func TestService_GetConsensusPrice_PersistsAndCaches(t *testing.T) {
	store := &fakeStore{}
	now := time.Now().Unix()
	adapters := []adapter.Adapter{
		&fakeAdapter{kind: types.Pyth, reading: types.PriceReading{Symbol: "BTC/USD", Price: sdk.MustNewDecFromStr("50000"), Confidence: sdk.MustNewDecFromStr("5"), Timestamp: now, Source: types.Pyth}},
		&fakeAdapter{kind: types.Switchboard, reading: types.PriceReading{Symbol: "BTC/USD", Price: sdk.MustNewDecFromStr("50010"), Confidence: sdk.MustNewDecFromStr("5"), Timestamp: now, Source: types.Switchboard}},
	}
	svc := newTestService(adapters, store)

	reading, err := svc.GetConsensusPrice(context.Background(), "BTC/USD")
	require.NoError(t, err)
	require.Equal(t, types.Aggregate, reading.Source)
	require.Len(t, store.appended, 1)
	require.Len(t, store.upserts, 2)

	stats, err := svc.CacheStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Entries)
}

func TestService_GetConsensusPrice_DeviationPersistsAlert(t *testing.T) {
	store := &fakeStore{}
	now := time.Now().Unix()
	adapters := []adapter.Adapter{
		&fakeAdapter{kind: types.Pyth, reading: types.PriceReading{Symbol: "BTC/USD", Price: sdk.MustNewDecFromStr("50000"), Confidence: sdk.MustNewDecFromStr("5"), Timestamp: now, Source: types.Pyth}},
		&fakeAdapter{kind: types.Switchboard, reading: types.PriceReading{Symbol: "BTC/USD", Price: sdk.MustNewDecFromStr("60000"), Confidence: sdk.MustNewDecFromStr("5"), Timestamp: now, Source: types.Switchboard}},
	}
	svc := newTestService(adapters, store)

	_, err := svc.GetConsensusPrice(context.Background(), "BTC/USD")
	require.ErrorIs(t, err, types.ErrPriceDeviation)
	require.Len(t, store.alerts, 1)
	require.Empty(t, store.appended)
}

func TestService_GetPrices_Batched(t *testing.T) {
	store := &fakeStore{}
	now := time.Now().Unix()
	adapters := []adapter.Adapter{
		&fakeAdapter{kind: types.Pyth, reading: types.PriceReading{Price: sdk.MustNewDecFromStr("1"), Confidence: sdk.ZeroDec(), Timestamp: now, Source: types.Pyth}},
	}
	svc := newTestService(adapters, store)

	results := svc.GetPrices(context.Background(), []string{"BTC/USD", "ETH/USD"})
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
	}
}

func TestService_ClearCache(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(nil, store)
	require.NoError(t, svc.ClearCache(context.Background()))
}

func TestService_Health(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(nil, store)
	h := svc.Health(context.Background())
	require.True(t, h.Store)
	require.True(t, h.Cache)
}
