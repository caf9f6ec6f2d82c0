// Package adapter implements the SourceAdapter contract (spec.md §4.1):
// one instance per oracle vendor, each resolving a symbol to an on-chain
// feed address, fetching the raw account, and normalizing the vendor's
// native representation into a types.PriceReading.
package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cosmos/btcutil/base58"
	"github.com/rs/zerolog"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// solanaPubkeyLen is the fixed on-wire length of a Solana public key, per
// original_source/backend/src/{pyth,switchboard}_client.rs's
// Pubkey::from_str (ed25519 public keys, always 32 bytes regardless of how
// many base58 characters they render as).
const solanaPubkeyLen = 32

// Adapter is the single capability every vendor-specific decoder
// implements. Per spec.md §9 this is "a tagged union with a dispatch
// function, or a trait/interface object held behind shared ownership" --
// Go's idiom is the interface.
type Adapter interface {
	Kind() types.OracleKind
	// Register binds a canonical symbol to a vendor-specific feed address.
	// Confined to startup; the registry is read-only thereafter.
	Register(symbol, feedAddress string) error
	Fetch(ctx context.Context, symbol string) (types.PriceReading, error)
	Healthy(ctx context.Context) bool
}

// registry is embedded by every concrete adapter: a simple symbol -> address
// map, populated only at startup. Writes take the write lock; every read
// (resolve, any) takes the read lock, so reads are not lock-free.
type registry struct {
	mu        sync.RWMutex
	addresses map[string]string
}

func newRegistry() registry {
	return registry{addresses: make(map[string]string)}
}

func (r *registry) register(symbol, feedAddress string) error {
	if feedAddress == "" {
		return fmt.Errorf("%w: empty feed address for %s", types.ErrNoFeed, symbol)
	}
	if !validPubkey(feedAddress) {
		return fmt.Errorf("%w: %s for %s is not a base58 Solana pubkey", types.ErrInvalidAddress, feedAddress, symbol)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[symbol] = feedAddress
	return nil
}

// validPubkey reports whether addr decodes as a 32-byte base58 Solana
// public key, matching the resolved behavior of the original's
// Pubkey::from_str: base58.Decode returns an empty slice both for invalid
// characters and for a genuinely empty input, so the length check alone
// covers both failure modes.
func validPubkey(addr string) bool {
	return len(base58.Decode(addr)) == solanaPubkeyLen
}

func (r *registry) resolve(symbol string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.addresses[symbol]
	return addr, ok
}

// any returns an arbitrary registered symbol, used by Healthy() probes.
func (r *registry) any() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for symbol := range r.addresses {
		return symbol, true
	}
	return "", false
}

const healthcheckFreshness = 60 * time.Second

func freshEnough(ts int64) bool {
	return time.Since(time.Unix(ts, 0)) <= healthcheckFreshness
}

// loggerFor returns a component sub-logger the way the teacher tags every
// subsystem logger with its own "component" field.
func loggerFor(base zerolog.Logger, kind types.OracleKind) zerolog.Logger {
	return base.With().Str("component", "adapter").Str("oracle_kind", kind.String()).Logger()
}
