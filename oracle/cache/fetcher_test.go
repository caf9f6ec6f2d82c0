package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kujira-labs/oracle-backend/oracle/cache"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// S6: 100 concurrent Get calls for the same symbol during a cold cache
// collapse into exactly one produce invocation, and every caller receives
// the same reading.
func TestFetcher_S6_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	c := cache.NewMemory(10 * time.Second)
	f := cache.NewFetcher(c, zerolog.Nop())

	var calls int64
	produce := func(ctx context.Context) (types.PriceReading, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return types.PriceReading{
			Symbol: "ETH/USD", Price: sdk.MustNewDecFromStr("3000"), Confidence: sdk.MustNewDecFromStr("1"),
			Timestamp: time.Now().Unix(), Source: types.Aggregate,
		}, nil
	}

	const n = 100
	results := make([]types.PriceReading, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.Get(context.Background(), "ETH/USD", produce)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.True(t, results[i].Price.Equal(sdk.MustNewDecFromStr("3000")))
	}
}

// S5: first Get populates the cache; a second Get within the TTL returns
// the cached reading without invoking produce again; after TTL expiry
// produce runs again.
func TestFetcher_S5_TTLExpiry(t *testing.T) {
	c := cache.NewMemory(20 * time.Millisecond)
	f := cache.NewFetcher(c, zerolog.Nop())

	var calls int64
	produce := func(ctx context.Context) (types.PriceReading, error) {
		atomic.AddInt64(&calls, 1)
		return types.PriceReading{
			Symbol: "BTC/USD", Price: sdk.MustNewDecFromStr("50000"), Confidence: sdk.MustNewDecFromStr("1"),
			Timestamp: time.Now().Unix(), Source: types.Aggregate,
		}, nil
	}

	_, err := f.Get(context.Background(), "BTC/USD", produce)
	require.NoError(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(&calls))

	_, err = f.Get(context.Background(), "BTC/USD", produce)
	require.NoError(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(&calls))

	time.Sleep(30 * time.Millisecond)

	_, err = f.Get(context.Background(), "BTC/USD", produce)
	require.NoError(t, err)
	require.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestFetcher_ProduceErrorPropagates(t *testing.T) {
	c := cache.NewMemory(time.Hour)
	f := cache.NewFetcher(c, zerolog.Nop())

	_, err := f.Get(context.Background(), "BTC/USD", func(ctx context.Context) (types.PriceReading, error) {
		return types.PriceReading{}, types.ErrNoPriceData
	})
	require.ErrorIs(t, err, types.ErrNoPriceData)
}
