package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// approxReadingSize is a rough, fixed per-entry byte estimate used only for
// Stats().MemoryBytes -- this backend keeps Go values, not serialized
// bytes, so there is no exact wire size to report.
const approxReadingSize = 128

type memoryEntry struct {
	reading   types.PriceReading
	expiresAt time.Time
}

// Memory is a process-local map implementation of Cache, suitable for
// single-process deployments and tests. It satisfies the same contract as
// the Redis-backed implementation (spec.md §4.3: "the backing store may be
// a process-local map or a remote networked store; the contract is
// identical").
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get treats an expired entry as absent without deleting it eagerly
// (spec.md §4.3), leaving its removal to Put/Clear overwrite or a future
// sweep -- this mirrors the "backing store may expire it" language for a
// remote cache, applied uniformly to the in-process map.
func (m *Memory) Get(_ context.Context, symbol string) (types.PriceReading, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key(symbol)]
	if !ok {
		return types.PriceReading{}, false, nil
	}
	if m.now().After(e.expiresAt) {
		return types.PriceReading{}, false, nil
	}
	return e.reading, true, nil
}

func (m *Memory) Put(_ context.Context, reading types.PriceReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key(reading.Symbol)] = memoryEntry{reading: reading, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key(symbol))
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}

func (m *Memory) Stats(_ context.Context) (types.CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.CacheStats{
		Entries:     len(m.entries),
		MemoryBytes: int64(len(m.entries) * approxReadingSize),
		TTLSeconds:  int64(m.ttl.Seconds()),
	}, nil
}

func (m *Memory) Healthy(_ context.Context) bool {
	return true
}
