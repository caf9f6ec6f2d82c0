package adapter

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kujira-labs/oracle-backend/oracle/rpcclient"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// pythAccountOffset/length constants describe the fields of a Pyth V2 price
// account this adapter actually reads. Only the fixed-width fields needed
// for a current-price read are decoded; the rest of the account layout
// (corporate actions, EMA, prior accumulators) is left alone.
const (
	pythExponentOffset    = 20
	pythCurrentPriceOff   = 208
	pythCurrentConfOff    = 216
	pythCurrentSlotOffset = 224
	pythMinAccountLen     = 232
)

// PythAdapter speaks the fixed-exponent account layout: {price:i64,
// confidence:u64, exponent:i32, publish_time:i64}, normalized per spec.md
// §4.1 as price = price * 10^exponent.
type PythAdapter struct {
	registry
	rpc    *rpcclient.Client
	logger zerolog.Logger
}

func NewPythAdapter(rpc *rpcclient.Client, logger zerolog.Logger) *PythAdapter {
	return &PythAdapter{
		registry: newRegistry(),
		rpc:      rpc,
		logger:   loggerFor(logger, types.Pyth),
	}
}

func (a *PythAdapter) Kind() types.OracleKind { return types.Pyth }

func (a *PythAdapter) Register(symbol, feedAddress string) error {
	return a.register(symbol, feedAddress)
}

func (a *PythAdapter) Fetch(ctx context.Context, symbol string) (types.PriceReading, error) {
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

func (a *PythAdapter) decode(symbol string, raw []byte) (types.PriceReading, error) {
	if len(raw) < pythMinAccountLen {
		return types.PriceReading{}, fmt.Errorf("%w: account too short (%d bytes)", types.ErrDecodeFailure, len(raw))
	}

	exponent := int32(binary.LittleEndian.Uint32(raw[pythExponentOffset : pythExponentOffset+4]))
	rawPrice := int64(binary.LittleEndian.Uint64(raw[pythCurrentPriceOff : pythCurrentPriceOff+8]))
	rawConf := binary.LittleEndian.Uint64(raw[pythCurrentConfOff : pythCurrentConfOff+8])
	publishTime := int64(binary.LittleEndian.Uint64(raw[pythCurrentSlotOffset : pythCurrentSlotOffset+8]))

	if rawPrice == 0 && rawConf == 0 && publishTime == 0 {
		return types.PriceReading{}, types.ErrNoCurrentValue
	}

	price := fromExponent(rawPrice, exponent)
	if price.IsNegative() {
		return types.PriceReading{}, fmt.Errorf("%w: negative price", types.ErrDecodeFailure)
	}
	confidence := fromExponent(int64(rawConf), exponent)

	return types.PriceReading{
		Symbol:     symbol,
		Price:      price,
		Confidence: confidence,
		Timestamp:  publishTime,
		Source:     types.Pyth,
	}, nil
}

func (a *PythAdapter) Healthy(ctx context.Context) bool {
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
