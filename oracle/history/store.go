// Package history implements the HistoryStore contract (spec.md §4.5): an
// append-only log of served consensus readings plus range/stats queries,
// oracle health upserts, deviation alert persistence, and a retention
// sweep.
package history

import (
	"context"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// Store is the persistence boundary. All methods either succeed atomically
// or return an error; partial writes are forbidden (spec.md §4.5).
type Store interface {
	Append(ctx context.Context, reading types.PriceReading) error
	// AppendBatch runs in a single atomic transaction; partial insertion is
	// never visible.
	AppendBatch(ctx context.Context, readings []types.PriceReading) error
	// GetRecent returns at most limit rows, newest-first.
	GetRecent(ctx context.Context, symbol string, limit int) ([]types.HistoryRecord, error)
	// GetRange returns rows with timestamp in [startTs, endTs], oldest-first.
	GetRange(ctx context.Context, symbol string, startTs, endTs int64) ([]types.HistoryRecord, error)
	GetStats(ctx context.Context, symbol string, startTs, endTs int64) (types.Stats, error)
	// UpsertHealth merges an observation: consecutive_failures resets to 0
	// on success, increments on failure.
	UpsertHealth(ctx context.Context, row types.OracleHealthRow) error
	GetHealth(ctx context.Context, source types.OracleKind) (types.OracleHealthRow, bool, error)
	GetAllHealth(ctx context.Context) ([]types.OracleHealthRow, error)
	AppendDeviationAlert(ctx context.Context, alert types.DeviationAlert) error
	Healthy(ctx context.Context) bool
	// PruneBefore deletes rows older than ts and reports how many were
	// removed; called from a periodic background task.
	PruneBefore(ctx context.Context, ts int64) (int64, error)
}
