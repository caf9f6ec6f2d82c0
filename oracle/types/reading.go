package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// OracleKind is the closed, build-time-fixed set of vendors a SourceAdapter
// may speak for, plus the Aggregate sentinel carried by consensus readings.
type OracleKind string

const (
	Pyth        OracleKind = "pyth"
	Switchboard OracleKind = "switchboard"
	Aggregate   OracleKind = "aggregate"
)

// String satisfies fmt.Stringer so OracleKind prints and persists as its
// textual variant name (spec: "Source fields store the textual variant name").
func (k OracleKind) String() string {
	return string(k)
}

// PriceReading is the common currency every adapter, the aggregator, the
// cache and the history store exchange. It is immutable after construction.
type PriceReading struct {
	Symbol     string
	Price      sdk.Dec
	Confidence sdk.Dec
	Timestamp  int64
	Source     OracleKind
}

// ConfidenceBps returns floor(confidence * 10_000 / price), defined as 0
// when price is zero so a zero-price reading never trips LowConfidence.
func (r PriceReading) ConfidenceBps() int64 {
	if r.Price.IsZero() {
		return 0
	}
	bps := r.Confidence.MulInt64(10_000).Quo(r.Price)
	return bps.TruncateInt64()
}
