package aggregator

import (
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

func mkReading(price string) types.PriceReading {
	return types.PriceReading{Price: sdk.MustNewDecFromStr(price), Confidence: sdk.MustNewDecFromStr("1")}
}

// Mirrors original_source/price_aggregator.rs's test_median_odd_count.
func TestMedianConsensus_OddCount(t *testing.T) {
	got := medianConsensus("BTC/USD", []types.PriceReading{mkReading("100"), mkReading("150"), mkReading("200")})
	require.True(t, got.Price.Equal(sdk.MustNewDecFromStr("150")))
	require.Equal(t, types.Aggregate, got.Source)
}

// Mirrors original_source/price_aggregator.rs's test_median_even_count.
func TestMedianConsensus_EvenCount(t *testing.T) {
	got := medianConsensus("BTC/USD", []types.PriceReading{mkReading("100"), mkReading("200")})
	require.True(t, got.Price.Equal(sdk.MustNewDecFromStr("150")))
}

func TestMedianConsensus_UnsortedInput(t *testing.T) {
	got := medianConsensus("BTC/USD", []types.PriceReading{mkReading("300"), mkReading("100"), mkReading("200")})
	require.True(t, got.Price.Equal(sdk.MustNewDecFromStr("200")))
}

// Mirrors original_source/price_aggregator.rs's test_deviation_calculation:
// deviation(50500, 50000) == 100bps.
func TestDeviationBps(t *testing.T) {
	got := deviationBps(sdk.MustNewDecFromStr("50500"), sdk.MustNewDecFromStr("50000"))
	require.Equal(t, int64(100), got)
}

func TestDeviationBps_ZeroConsensusNeverDivides(t *testing.T) {
	got := deviationBps(sdk.MustNewDecFromStr("5"), sdk.ZeroDec())
	require.Equal(t, int64(0), got)
}
