package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kujira-labs/oracle-backend/oracle/history"
	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// PersistentRecorder satisfies the aggregator's HealthRecorder capability by
// updating both the fast in-memory Tracker and the authoritative
// oracle_health row in HistoryStore on every adapter observation (spec.md
// §4.6: the cumulative totals live in HistoryStore, Tracker is only the
// fast path for "is it up right now"). Mirrors
// original_source/backend/src/database.rs's update_oracle_health, called
// per observation instead of left unwired.
type PersistentRecorder struct {
	tracker *Tracker
	store   history.Store
	logger  zerolog.Logger
	now     func() time.Time
}

func NewPersistentRecorder(tracker *Tracker, store history.Store, logger zerolog.Logger) *PersistentRecorder {
	return &PersistentRecorder{
		tracker: tracker,
		store:   store,
		logger:  logger.With().Str("component", "health_recorder").Logger(),
		now:     time.Now,
	}
}

func (r *PersistentRecorder) RecordSuccess(ctx context.Context, kind types.OracleKind) {
	r.tracker.RecordSuccess(kind)
	r.persist(ctx, kind, true)
}

func (r *PersistentRecorder) RecordFailure(ctx context.Context, kind types.OracleKind) {
	r.tracker.RecordFailure(kind)
	r.persist(ctx, kind, false)
}

// persist best-effort upserts the observation; a store error is logged and
// swallowed rather than surfaced, matching spec.md §7's disposition for
// HistoryStore failures on the non-critical path (the in-memory Tracker
// already reflects the observation regardless of store health).
func (r *PersistentRecorder) persist(ctx context.Context, kind types.OracleKind, success bool) {
	now := r.now().Unix()
	row := types.OracleHealthRow{
		Source:    kind,
		IsHealthy: success,
	}
	if success {
		row.LastSuccessAt = now
	} else {
		row.LastFailureAt = now
	}
	if err := r.store.UpsertHealth(ctx, row); err != nil {
		r.logger.Warn().Str("source", kind.String()).Bool("success", success).
			Err(err).Msg("failed to persist oracle health observation")
	}
}
