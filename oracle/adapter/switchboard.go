package adapter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/kujira-labs/oracle-backend/oracle/rpcclient"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// Layout offsets for the fields of an AggregatorAccountData this adapter
// reads out of latest_confirmed_round: {result: SwitchboardDecimal{mantissa:
// i128, scale: u32}, std_deviation: SwitchboardDecimal, round_open_timestamp:
// i64}. Only the confirmed-round fields are decoded.
const (
	sbResultMantissaOffset = 0
	sbResultScaleOffset    = 16
	sbStdDevMantissaOffset = 20
	sbStdDevScaleOffset    = 36
	sbTimestampOffset      = 40
	sbMinAccountLen        = 48
)

// SwitchboardAdapter speaks the decimal-with-scale account layout:
// {mantissa:i128, scale:u32, std_deviation, round_open_timestamp},
// normalized per spec.md §4.1 as price = mantissa / 10^scale (always
// division, never multiplication).
type SwitchboardAdapter struct {
	registry
	rpc    *rpcclient.Client
	logger zerolog.Logger
}

func NewSwitchboardAdapter(rpc *rpcclient.Client, logger zerolog.Logger) *SwitchboardAdapter {
	return &SwitchboardAdapter{
		registry: newRegistry(),
		rpc:      rpc,
		logger:   loggerFor(logger, types.Switchboard),
	}
}

func (a *SwitchboardAdapter) Kind() types.OracleKind { return types.Switchboard }

func (a *SwitchboardAdapter) Register(symbol, feedAddress string) error {
	return a.register(symbol, feedAddress)
}

func (a *SwitchboardAdapter) Fetch(ctx context.Context, symbol string) (types.PriceReading, error) {
	addr, ok := a.resolve(symbol)
	if !ok {
		return types.PriceReading{}, fmt.Errorf("%w: %s", types.ErrNoFeed, symbol)
	}

	raw, err := a.rpc.GetAccountData(ctx, addr)
	if err != nil {
		return types.PriceReading{}, err
	}

	return a.decode(symbol, raw)
}

// int128LE interprets a 16-byte little-endian two's-complement integer as a
// math/big.Int -- the native width the Solana runtime uses for i128, which
// does not fit in a native int64 and so cannot be read with encoding/binary
// alone.
func int128LE(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	v := new(big.Int).SetBytes(be)
	if be[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return v
}

func (a *SwitchboardAdapter) decode(symbol string, raw []byte) (types.PriceReading, error) {
	if len(raw) < sbMinAccountLen {
		return types.PriceReading{}, fmt.Errorf("%w: account too short (%d bytes)", types.ErrDecodeFailure, len(raw))
	}

	resultMantissa := int128LE(raw[sbResultMantissaOffset : sbResultMantissaOffset+16])
	resultScale := binaryLE32(raw[sbResultScaleOffset : sbResultScaleOffset+4])
	stdDevMantissa := int128LE(raw[sbStdDevMantissaOffset : sbStdDevMantissaOffset+16])
	stdDevScale := binaryLE32(raw[sbStdDevScaleOffset : sbStdDevScaleOffset+4])
	timestamp := int64(binaryLE64(raw[sbTimestampOffset : sbTimestampOffset+8]))

	if timestamp == 0 {
		return types.PriceReading{}, types.ErrNoCurrentValue
	}

	price := fromScale(resultMantissa, resultScale)
	if price.IsNegative() {
		return types.PriceReading{}, fmt.Errorf("%w: negative price", types.ErrDecodeFailure)
	}
	confidence := fromScale(stdDevMantissa, stdDevScale)

	return types.PriceReading{
		Symbol:     symbol,
		Price:      price,
		Confidence: confidence,
		Timestamp:  timestamp,
		Source:     types.Switchboard,
	}, nil
}

func (a *SwitchboardAdapter) Healthy(ctx context.Context) bool {
	symbol, ok := a.any()
	if !ok {
		a.logger.Warn().Msg("no symbols registered, reporting unhealthy")
		return false
	}
	reading, err := a.Fetch(ctx, symbol)
	if err != nil {
		return false
	}
	return freshEnough(reading.Timestamp)
}
