package cache_test

import (
	"context"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/kujira-labs/oracle-backend/oracle/cache"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

func btcReading() types.PriceReading {
	return types.PriceReading{
		Symbol: "BTC/USD", Price: sdk.MustNewDecFromStr("50000"), Confidence: sdk.MustNewDecFromStr("5"),
		Timestamp: time.Now().Unix(), Source: types.Aggregate,
	}
}

func TestMemory_PutThenGet(t *testing.T) {
	c := cache.NewMemory(time.Hour)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "BTC/USD")
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, c.Put(ctx, btcReading()))

	got, hit, err := c.Get(ctx, "BTC/USD")
	require.NoError(t, err)
	require.True(t, hit)
	require.True(t, got.Price.Equal(sdk.MustNewDecFromStr("50000")))
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	c := cache.NewMemory(1 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, btcReading()))
	time.Sleep(5 * time.Millisecond)

	_, hit, err := c.Get(ctx, "BTC/USD")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestMemory_ClearResetsStats(t *testing.T) {
	c := cache.NewMemory(time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, btcReading()))
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Entries)

	require.NoError(t, c.Clear(ctx))
	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Entries)
}

func TestMemory_Delete(t *testing.T) {
	c := cache.NewMemory(time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, btcReading()))
	require.NoError(t, c.Delete(ctx, "BTC/USD"))

	_, hit, err := c.Get(ctx, "BTC/USD")
	require.NoError(t, err)
	require.False(t, hit)
}
