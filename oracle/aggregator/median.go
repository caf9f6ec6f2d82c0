package aggregator

import (
	"sort"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// medianConsensus implements spec.md §4.2 step 5: sort surviving readings by
// price (stable, so equal prices keep input order), then take the middle
// reading (odd count) or the mean of the two middle readings (even count).
// Consensus timestamp is the max of the surviving timestamps.
func medianConsensus(symbol string, readings []types.PriceReading) types.PriceReading {
	sorted := make([]types.PriceReading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price.LT(sorted[j].Price)
	})

	n := len(sorted)
	var price, confidence sdk.Dec
	if n%2 == 1 {
		mid := sorted[n/2]
		price, confidence = mid.Price, mid.Confidence
	} else {
		lo, hi := sorted[n/2-1], sorted[n/2]
		two := sdk.NewDec(2)
		price = lo.Price.Add(hi.Price).Quo(two)
		confidence = lo.Confidence.Add(hi.Confidence).Quo(two)
	}

	maxTs := sorted[0].Timestamp
	for _, r := range sorted {
		if r.Timestamp > maxTs {
			maxTs = r.Timestamp
		}
	}

	return types.PriceReading{
		Symbol:     symbol,
		Price:      price,
		Confidence: confidence,
		Timestamp:  maxTs,
		Source:     types.Aggregate,
	}
}

// deviationBps computes |price - consensusPrice| * 10_000 / consensusPrice,
// defined as 0 when the consensus price is zero (spec.md §4.2 step 6;
// mirrors original_source/price_aggregator.rs's calculate_deviation).
func deviationBps(price, consensusPrice sdk.Dec) int64 {
	if consensusPrice.IsZero() {
		return 0
	}
	diff := price.Sub(consensusPrice).Abs()
	return diff.MulInt64(10_000).Quo(consensusPrice).TruncateInt64()
}
