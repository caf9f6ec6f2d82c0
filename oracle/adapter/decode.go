package adapter

import (
	"encoding/binary"
	"math/big"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

func binaryLE32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func binaryLE64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// fromExponent converts a signed integer mantissa plus a base-10 exponent
// into an exact sdk.Dec, by shifting the decimal point by the absolute value
// of the exponent -- never through a binary float intermediate. Grounded in
// the fixed-exponent conversion the teacher's own Pyth provider performed:
// price = mantissa * 10^exponent, computed via sdk.Dec.Power.
func fromExponent(mantissa int64, exponent int32) sdk.Dec {
	value := sdk.NewDec(mantissa)
	factor := sdk.NewDec(10)
	switch {
	case exponent < 0:
		factor = sdk.NewDec(1).Quo(factor.Power(uint64(-exponent)))
	case exponent > 0:
		factor = factor.Power(uint64(exponent))
	default:
		return value
	}
	return value.Mul(factor)
}

// fromScale converts a 128-bit signed mantissa (too wide for int64, hence
// math/big) plus a non-negative scale into an exact sdk.Dec via division
// only, per the Switchboard decimal-with-scale format: price = mantissa /
// 10^scale.
func fromScale(mantissa *big.Int, scale uint32) sdk.Dec {
	numerator := sdk.NewDecFromBigInt(mantissa)
	if scale == 0 {
		return numerator
	}
	divisor := sdk.NewDec(10).Power(uint64(scale))
	return numerator.Quo(divisor)
}
