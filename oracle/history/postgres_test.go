package history_test

import (
	"context"
	"os"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kujira-labs/oracle-backend/oracle/history"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// requires a live Postgres instance; run with
// TEST_DATABASE_URL=postgres://... go test ./oracle/history/...
func openTestStore(t *testing.T) *history.Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres-backed history tests")
	}
	store, err := history.Open(dsn, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestPostgres_AppendThenGetRecent(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	symbol := "TEST/ROUNDTRIP"
	r := types.PriceReading{
		Symbol: symbol, Price: sdk.MustNewDecFromStr("123.45"), Confidence: sdk.MustNewDecFromStr("0.5"),
		Timestamp: time.Now().Unix(), Source: types.Aggregate,
	}
	require.NoError(t, store.Append(ctx, r))

	recent, err := store.GetRecent(ctx, symbol, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.True(t, recent[0].Price.Equal(r.Price))
	require.True(t, recent[0].Confidence.Equal(r.Confidence))
	require.Equal(t, r.Source, recent[0].Source)
}

func TestPostgres_StatsEmptyRangeIsNil(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	stats, err := store.GetStats(ctx, "NEVER/SEEN", 0, 1)
	require.NoError(t, err)
	require.Zero(t, stats.Count)
	require.Nil(t, stats.Min)
	require.Nil(t, stats.Max)
}

func TestPostgres_HealthUpsertCountersReset(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	source := types.OracleKind("test_source")
	require.NoError(t, store.UpsertHealth(ctx, types.OracleHealthRow{Source: source, IsHealthy: false}))
	require.NoError(t, store.UpsertHealth(ctx, types.OracleHealthRow{Source: source, IsHealthy: false}))
	row, ok, err := store.GetHealth(ctx, source)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), row.ConsecutiveFailures)

	require.NoError(t, store.UpsertHealth(ctx, types.OracleHealthRow{Source: source, IsHealthy: true}))
	row, _, err = store.GetHealth(ctx, source)
	require.NoError(t, err)
	require.Zero(t, row.ConsecutiveFailures)
}

func TestPostgres_PruneBefore(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	ctx := context.Background()

	symbol := "TEST/PRUNE"
	require.NoError(t, store.Append(ctx, types.PriceReading{
		Symbol: symbol, Price: sdk.MustNewDecFromStr("1"), Confidence: sdk.MustNewDecFromStr("0"),
		Timestamp: 1, Source: types.Aggregate,
	}))

	n, err := store.PruneBefore(ctx, 1000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))
}
