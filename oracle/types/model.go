package types

import sdk "github.com/cosmos/cosmos-sdk/types"

// HistoryRecord is a persisted, append-only row mirroring the
// price_history table (spec.md §6). IDs are monotonic and server-assigned.
type HistoryRecord struct {
	ID         int64
	Symbol     string
	Price      sdk.Dec
	Confidence sdk.Dec
	Source     OracleKind
	Timestamp  int64
	CreatedAt  int64
}

// OracleHealthRow is one row per source mirroring the oracle_health table.
type OracleHealthRow struct {
	Source              OracleKind
	IsHealthy           bool
	LastSuccessAt       int64
	LastFailureAt       int64
	ConsecutiveFailures int64
	TotalRequests       int64
	TotalFailures       int64
	UpdatedAt           int64
}

// DeviationAlert is persisted when consensus is rejected due to excess
// inter-source deviation, naming the two offending readings.
type DeviationAlert struct {
	Symbol       string
	Source1      OracleKind
	Price1       sdk.Dec
	Source2      OracleKind
	Price2       sdk.Dec
	DeviationBps int64
	ThresholdBps int64
	Timestamp    int64
}

// Stats is the result of HistoryStore.GetStats; numeric fields are nil when
// Count is zero (spec.md §4.5).
type Stats struct {
	Min    *sdk.Dec
	Max    *sdk.Dec
	Mean   *sdk.Dec
	StdDev *sdk.Dec
	Count  int64
}

// CacheStats mirrors Cache.Stats()'s contract.
type CacheStats struct {
	Entries     int
	MemoryBytes int64
	TTLSeconds  int64
}

// HealthSnapshot is the in-memory view HealthTracker exposes per source.
type HealthSnapshot struct {
	Source     OracleKind
	Healthy    bool
	LastUpdate int64
	ErrorCount uint32
}
