// Package health implements the HealthTracker contract (spec.md §4.6): an
// in-memory, per-source liveness view updated on every adapter Fetch and
// surfaced as the fast path for the /health endpoints. The authoritative
// cumulative totals live in HistoryStore; this tracker only answers "is it
// up right now."
package health

import (
	"sync"
	"time"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// Tracker is safe for concurrent use; it is mutated on every request, per
// spec.md §5's requirement that Cache and HealthTracker be independently
// thread-safe.
type Tracker struct {
	mu    sync.RWMutex
	state map[types.OracleKind]*entry
	now   func() time.Time
}

type entry struct {
	healthy    bool
	lastUpdate int64
	errorCount uint32
}

func New() *Tracker {
	return &Tracker{
		state: make(map[types.OracleKind]*entry),
		now:   time.Now,
	}
}

// RecordSuccess marks kind healthy, resets its error count, and stamps the
// update time.
func (t *Tracker) RecordSuccess(kind types.OracleKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[kind] = &entry{healthy: true, lastUpdate: t.now().Unix(), errorCount: 0}
}

// RecordFailure marks kind unhealthy and increments its error count.
func (t *Tracker) RecordFailure(kind types.OracleKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.state[kind]
	errCount := uint32(1)
	if ok {
		errCount = prev.errorCount + 1
	}
	t.state[kind] = &entry{healthy: false, lastUpdate: t.now().Unix(), errorCount: errCount}
}

// Snapshot returns the current view for a single source.
func (t *Tracker) Snapshot(kind types.OracleKind) (types.HealthSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.state[kind]
	if !ok {
		return types.HealthSnapshot{}, false
	}
	return types.HealthSnapshot{Source: kind, Healthy: e.healthy, LastUpdate: e.lastUpdate, ErrorCount: e.errorCount}, true
}

// All returns a snapshot for every source observed so far.
func (t *Tracker) All() []types.HealthSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.HealthSnapshot, 0, len(t.state))
	for kind, e := range t.state {
		out = append(out, types.HealthSnapshot{Source: kind, Healthy: e.healthy, LastUpdate: e.lastUpdate, ErrorCount: e.errorCount})
	}
	return out
}
