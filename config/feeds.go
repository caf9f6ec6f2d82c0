package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FeedRegistry is the static, checked-in per-vendor mapping of symbol ->
// on-chain feed address (spec.md §3 SymbolRegistration: "registered once at
// startup; never mutated at runtime"). Deploy-time data, not a secret, so it
// is parsed from a TOML file with BurntSushi/toml exactly the way the
// teacher's own ParseConfig decodes its TOML file, rather than pulled from
// the environment alongside credentials.
type FeedRegistry struct {
	Pyth        []Feed `toml:"pyth"`
	Switchboard []Feed `toml:"switchboard"`
}

// Feed binds one canonical symbol to one vendor's feed address.
type Feed struct {
	Symbol  string `toml:"symbol" validate:"required"`
	Address string `toml:"address" validate:"required"`
}

// LoadFeedRegistry reads and validates a feed registry TOML file.
func LoadFeedRegistry(path string) (FeedRegistry, error) {
	var reg FeedRegistry

	data, err := os.ReadFile(path)
	if err != nil {
		return reg, fmt.Errorf("failed to read feed registry: %w", err)
	}
	if _, err := toml.Decode(string(data), &reg); err != nil {
		return reg, fmt.Errorf("failed to decode feed registry: %w", err)
	}

	for _, f := range reg.Pyth {
		if err := validate.Struct(f); err != nil {
			return reg, fmt.Errorf("invalid pyth feed entry: %w", err)
		}
	}
	for _, f := range reg.Switchboard {
		if err := validate.Struct(f); err != nil {
			return reg, fmt.Errorf("invalid switchboard feed entry: %w", err)
		}
	}

	return reg, nil
}
