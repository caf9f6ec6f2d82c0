package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS price_history (
	id          BIGSERIAL PRIMARY KEY,
	symbol      TEXT NOT NULL,
	price       NUMERIC NOT NULL,
	confidence  NUMERIC NOT NULL,
	source      TEXT NOT NULL,
	timestamp   BIGINT NOT NULL,
	created_at  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_history_symbol_ts ON price_history (symbol, timestamp DESC);

CREATE TABLE IF NOT EXISTS oracle_health (
	id                   BIGSERIAL PRIMARY KEY,
	source               TEXT NOT NULL UNIQUE,
	is_healthy           BOOLEAN NOT NULL,
	last_success_at      BIGINT,
	last_failure_at      BIGINT,
	consecutive_failures BIGINT NOT NULL DEFAULT 0,
	total_requests       BIGINT NOT NULL DEFAULT 0,
	total_failures       BIGINT NOT NULL DEFAULT 0,
	updated_at           BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS price_deviation_alerts (
	id            BIGSERIAL PRIMARY KEY,
	symbol        TEXT NOT NULL,
	source1       TEXT NOT NULL,
	price1        NUMERIC NOT NULL,
	source2       TEXT NOT NULL,
	price2        NUMERIC NOT NULL,
	deviation_bps BIGINT NOT NULL,
	threshold_bps BIGINT NOT NULL,
	timestamp     BIGINT NOT NULL,
	created_at    BIGINT NOT NULL
);
`

// Postgres implements Store against a database/sql connection pool backed
// by lib/pq, the same database/sql + prepared-statement idiom as the
// teacher's oracle/history/db.go, retargeted from SQLite to Postgres per
// spec.md §6's bit-stable relational schema (upsert-with-counters, STDDEV).
type Postgres struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open connects to dsn with a bounded pool (max 10 connections, mirroring
// original_source/backend/src/database.rs's PgPoolOptions::max_connections)
// and ensures the schema exists.
func Open(dsn string, logger zerolog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", types.ErrStoreBackend, err)
	}
	db.SetMaxOpenConns(10)

	p := &Postgres{db: db, logger: logger.With().Str("component", "history_store").Logger(), now: time.Now}
	if err := p.init(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) init() error {
	if _, err := p.db.Exec(createSchema); err != nil {
		return fmt.Errorf("%w: init schema: %v", types.ErrStoreBackend, err)
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, reading types.PriceReading) error {
	return p.AppendBatch(ctx, []types.PriceReading{reading})
}

// AppendBatch runs inside a single transaction, grounded in
// original_source/backend/src/database.rs's insert_prices
// (tx.begin()/commit() loop): either every row lands or none do.
func (p *Postgres) AppendBatch(ctx context.Context, readings []types.PriceReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", types.ErrStoreBackend, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history (symbol, price, confidence, source, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", types.ErrStoreBackend, err)
	}
	defer stmt.Close()

	createdAt := p.now().Unix()
	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, r.Symbol, r.Price.String(), r.Confidence.String(), r.Source.String(), r.Timestamp, createdAt); err != nil {
			return fmt.Errorf("%w: insert: %v", types.ErrStoreBackend, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", types.ErrStoreBackend, err)
	}
	return nil
}

func (p *Postgres) GetRecent(ctx context.Context, symbol string, limit int) ([]types.HistoryRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, symbol, price, confidence, source, timestamp, created_at
		FROM price_history WHERE symbol = $1
		ORDER BY timestamp DESC, id DESC LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreBackend, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *Postgres) GetRange(ctx context.Context, symbol string, startTs, endTs int64) ([]types.HistoryRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, symbol, price, confidence, source, timestamp, created_at
		FROM price_history WHERE symbol = $1 AND timestamp BETWEEN $2 AND $3
		ORDER BY timestamp ASC, id ASC`, symbol, startTs, endTs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreBackend, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]types.HistoryRecord, error) {
	var out []types.HistoryRecord
	for rows.Next() {
		var (
			rec                    types.HistoryRecord
			priceStr, confStr, src string
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &priceStr, &confStr, &src, &rec.Timestamp, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", types.ErrStoreBackend, err)
		}
		price, err := sdk.NewDecFromStr(priceStr)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed price: %v", types.ErrStoreBackend, err)
		}
		conf, err := sdk.NewDecFromStr(confStr)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed confidence: %v", types.ErrStoreBackend, err)
		}
		rec.Price = price
		rec.Confidence = conf
		rec.Source = types.OracleKind(src)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreBackend, err)
	}
	return out, nil
}

// GetStats aggregates MIN/MAX/AVG/STDDEV/COUNT over the range, per
// original_source/backend/src/database.rs's get_price_stats. When count is
// zero every numeric field is nil (spec.md §4.5).
func (p *Postgres) GetStats(ctx context.Context, symbol string, startTs, endTs int64) (types.Stats, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT MIN(price), MAX(price), AVG(price), STDDEV(price), COUNT(*)
		FROM price_history WHERE symbol = $1 AND timestamp BETWEEN $2 AND $3`, symbol, startTs, endTs)

	var (
		min, max, mean, stddev sql.NullString
		count                  int64
	)
	if err := row.Scan(&min, &max, &mean, &stddev, &count); err != nil {
		return types.Stats{}, fmt.Errorf("%w: %v", types.ErrStoreBackend, err)
	}

	stats := types.Stats{Count: count}
	if count == 0 {
		return stats, nil
	}

	toDec := func(ns sql.NullString) (*sdk.Dec, error) {
		if !ns.Valid {
			return nil, nil
		}
		d, err := sdk.NewDecFromStr(ns.String)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}

	var err error
	if stats.Min, err = toDec(min); err != nil {
		return types.Stats{}, fmt.Errorf("%w: malformed min: %v", types.ErrStoreBackend, err)
	}
	if stats.Max, err = toDec(max); err != nil {
		return types.Stats{}, fmt.Errorf("%w: malformed max: %v", types.ErrStoreBackend, err)
	}
	if stats.Mean, err = toDec(mean); err != nil {
		return types.Stats{}, fmt.Errorf("%w: malformed mean: %v", types.ErrStoreBackend, err)
	}
	if stats.StdDev, err = toDec(stddev); err != nil {
		return types.Stats{}, fmt.Errorf("%w: malformed stddev: %v", types.ErrStoreBackend, err)
	}
	return stats, nil
}

// UpsertHealth mirrors original_source/backend/src/database.rs's
// update_oracle_health: ON CONFLICT (source) DO UPDATE, resetting
// consecutive_failures on success and incrementing it on failure.
func (p *Postgres) UpsertHealth(ctx context.Context, row types.OracleHealthRow) error {
	now := p.now().Unix()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO oracle_health (source, is_healthy, last_success_at, last_failure_at, consecutive_failures, total_requests, total_failures, updated_at)
		VALUES ($1, $2, $3, $4, CASE WHEN $2 THEN 0 ELSE 1 END, 1, CASE WHEN $2 THEN 0 ELSE 1 END, $5)
		ON CONFLICT (source) DO UPDATE SET
			is_healthy = $2,
			last_success_at = CASE WHEN $2 THEN $3 ELSE oracle_health.last_success_at END,
			last_failure_at = CASE WHEN $2 THEN oracle_health.last_failure_at ELSE $4 END,
			consecutive_failures = CASE WHEN $2 THEN 0 ELSE oracle_health.consecutive_failures + 1 END,
			total_requests = oracle_health.total_requests + 1,
			total_failures = oracle_health.total_failures + CASE WHEN $2 THEN 0 ELSE 1 END,
			updated_at = $5`,
		row.Source.String(), row.IsHealthy, row.LastSuccessAt, row.LastFailureAt, now)
	if err != nil {
		return fmt.Errorf("%w: upsert health: %v", types.ErrStoreBackend, err)
	}
	return nil
}

func (p *Postgres) GetHealth(ctx context.Context, source types.OracleKind) (types.OracleHealthRow, bool, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT source, is_healthy, last_success_at, last_failure_at, consecutive_failures, total_requests, total_failures, updated_at
		FROM oracle_health WHERE source = $1`, source.String())
	rec, err := scanHealthRow(row)
	if err == sql.ErrNoRows {
		return types.OracleHealthRow{}, false, nil
	}
	if err != nil {
		return types.OracleHealthRow{}, false, fmt.Errorf("%w: %v", types.ErrStoreBackend, err)
	}
	return rec, true, nil
}

func (p *Postgres) GetAllHealth(ctx context.Context) ([]types.OracleHealthRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT source, is_healthy, last_success_at, last_failure_at, consecutive_failures, total_requests, total_failures, updated_at
		FROM oracle_health ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreBackend, err)
	}
	defer rows.Close()

	var out []types.OracleHealthRow
	for rows.Next() {
		var src string
		var rec types.OracleHealthRow
		if err := rows.Scan(&src, &rec.IsHealthy, &rec.LastSuccessAt, &rec.LastFailureAt, &rec.ConsecutiveFailures, &rec.TotalRequests, &rec.TotalFailures, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", types.ErrStoreBackend, err)
		}
		rec.Source = types.OracleKind(src)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHealthRow(row rowScanner) (types.OracleHealthRow, error) {
	var src string
	var rec types.OracleHealthRow
	err := row.Scan(&src, &rec.IsHealthy, &rec.LastSuccessAt, &rec.LastFailureAt, &rec.ConsecutiveFailures, &rec.TotalRequests, &rec.TotalFailures, &rec.UpdatedAt)
	rec.Source = types.OracleKind(src)
	return rec, err
}

func (p *Postgres) AppendDeviationAlert(ctx context.Context, alert types.DeviationAlert) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO price_deviation_alerts (symbol, source1, price1, source2, price2, deviation_bps, threshold_bps, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.Symbol, alert.Source1.String(), alert.Price1.String(), alert.Source2.String(), alert.Price2.String(),
		alert.DeviationBps, alert.ThresholdBps, alert.Timestamp, p.now().Unix())
	if err != nil {
		return fmt.Errorf("%w: insert alert: %v", types.ErrStoreBackend, err)
	}
	return nil
}

func (p *Postgres) Healthy(ctx context.Context) bool {
	var one int
	return p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one) == nil
}

// PruneBefore mirrors original_source/backend/src/database.rs's
// cleanup_old_prices, returning the number of deleted rows.
func (p *Postgres) PruneBefore(ctx context.Context, ts int64) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM price_history WHERE timestamp < $1`, ts)
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %v", types.ErrStoreBackend, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", types.ErrStoreBackend, err)
	}
	return n, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
