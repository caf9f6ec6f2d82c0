package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

// redisEntry is the wire format stored under each "price:{symbol}" key.
// Decimal fields are carried as strings (sdk.Dec's own textual form) so no
// precision is lost round-tripping through JSON, mirroring
// original_source/backend/src/cache.rs's serde_json-serialized PriceData.
type redisEntry struct {
	Symbol     string `json:"symbol"`
	Price      string `json:"price"`
	Confidence string `json:"confidence"`
	Timestamp  int64  `json:"timestamp"`
	Source     string `json:"source"`
}

// Redis implements Cache against a remote go-redis/v9 client, grounded in
// poaiw-blockchain-paw/control-center/backend's use of Redis as the fast
// path in front of a slower source of truth.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, symbol string) (types.PriceReading, bool, error) {
	raw, err := r.client.Get(ctx, key(symbol)).Bytes()
	if err == redis.Nil {
		return types.PriceReading{}, false, nil
	}
	if err != nil {
		return types.PriceReading{}, false, fmt.Errorf("%w: %v", types.ErrCacheBackend, err)
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return types.PriceReading{}, false, fmt.Errorf("%w: decode entry: %v", types.ErrCacheBackend, err)
	}

	price, err := sdk.NewDecFromStr(e.Price)
	if err != nil {
		return types.PriceReading{}, false, fmt.Errorf("%w: malformed price: %v", types.ErrCacheBackend, err)
	}
	confidence, err := sdk.NewDecFromStr(e.Confidence)
	if err != nil {
		return types.PriceReading{}, false, fmt.Errorf("%w: malformed confidence: %v", types.ErrCacheBackend, err)
	}

	return types.PriceReading{
		Symbol:     e.Symbol,
		Price:      price,
		Confidence: confidence,
		Timestamp:  e.Timestamp,
		Source:     types.OracleKind(e.Source),
	}, true, nil
}

func (r *Redis) Put(ctx context.Context, reading types.PriceReading) error {
	e := redisEntry{
		Symbol:     reading.Symbol,
		Price:      reading.Price.String(),
		Confidence: reading.Confidence.String(),
		Timestamp:  reading.Timestamp,
		Source:     reading.Source.String(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", types.ErrCacheBackend, err)
	}
	if err := r.client.Set(ctx, key(reading.Symbol), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheBackend, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, symbol string) error {
	if err := r.client.Del(ctx, key(symbol)).Err(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheBackend, err)
	}
	return nil
}

// scanKeys enumerates every key matching pattern via cursor-based SCAN
// rather than KEYS, which blocks the single-threaded server for the full
// scan duration and would stall every other client sharing the instance.
func (r *Redis) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Clear evicts every cached reading via SCAN price:* + DEL, mirroring
// original_source/backend/src/cache.rs's clear_all.
func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.scanKeys(ctx, KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheBackend, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheBackend, err)
	}
	return nil
}

// Stats reports entry count (via SCAN price:*) and used_memory parsed out
// of INFO memory, the same two fields
// original_source/backend/src/cache.rs's get_stats returns.
func (r *Redis) Stats(ctx context.Context) (types.CacheStats, error) {
	keys, err := r.scanKeys(ctx, KeyPrefix+"*")
	if err != nil {
		return types.CacheStats{}, fmt.Errorf("%w: %v", types.ErrCacheBackend, err)
	}

	info, err := r.client.Info(ctx, "memory").Result()
	if err != nil {
		return types.CacheStats{}, fmt.Errorf("%w: %v", types.ErrCacheBackend, err)
	}

	return types.CacheStats{
		Entries:     len(keys),
		MemoryBytes: parseUsedMemory(info),
		TTLSeconds:  int64(r.ttl.Seconds()),
	}, nil
}

func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if !strings.HasPrefix(line, "used_memory:") {
			continue
		}
		var n int64
		fmt.Sscanf(strings.TrimPrefix(line, "used_memory:"), "%d", &n)
		return n
	}
	return 0
}

func (r *Redis) Healthy(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}
