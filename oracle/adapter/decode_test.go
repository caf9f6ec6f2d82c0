package adapter

import (
	"math/big"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
)

// Mirrors original_source/backend/src/pyth_client.rs's convert_to_decimal
// unit tests: 5_000_000 * 10^-2 == 50_000; 500 * 10^2 == 50_000;
// 50_000 * 10^0 == 50_000.
func TestFromExponent(t *testing.T) {
	cases := []struct {
		name     string
		mantissa int64
		exponent int32
		want     string
	}{
		{"negative exponent", 5_000_000, -2, "50000"},
		{"positive exponent", 500, 2, "50000"},
		{"zero exponent", 50_000, 0, "50000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fromExponent(tc.mantissa, tc.exponent)
			require.True(t, got.Equal(sdk.MustNewDecFromStr(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

// Mirrors the Switchboard decimal-with-scale format: division only.
func TestFromScale(t *testing.T) {
	cases := []struct {
		name     string
		mantissa int64
		scale    uint32
		want     string
	}{
		{"scale 2", 5_000_000, 2, "50000"},
		{"scale 0", 50_000, 0, "50000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fromScale(big.NewInt(tc.mantissa), tc.scale)
			require.True(t, got.Equal(sdk.MustNewDecFromStr(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestInt128LENegative(t *testing.T) {
	b := make([]byte, 16)
	b[0] = 0xff // low byte = -1 in little-endian two's complement
	for i := 1; i < 16; i++ {
		b[i] = 0xff
	}
	got := int128LE(b)
	require.Equal(t, big.NewInt(-1), got)
}

func TestInt128LEPositive(t *testing.T) {
	b := make([]byte, 16)
	b[0] = 0x2a
	got := int128LE(b)
	require.Equal(t, big.NewInt(42), got)
}
