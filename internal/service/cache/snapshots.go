package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot cache keys, one per warm-startable resource.
const (
	KeySignals   = "signals"
	KeyPositions = "positions"
	KeyStats     = "stats"
	KeyAccount   = "account"
)

const redisTTL = 24 * time.Hour

// SnapshotCache keeps the last good snapshot of each resource so a restart
// can render stale-but-available data before the first fetch completes. The
// in-process copy is authoritative for this run; Redis, when configured,
// makes it survive restarts.
type SnapshotCache struct {
	mu     sync.RWMutex
	mem    map[string][]byte
	rdb    *redis.Client
	prefix string
}

// NewSnapshotCache creates a snapshot cache. rdb may be nil for
// memory-only operation.
func NewSnapshotCache(rdb *redis.Client) *SnapshotCache {
	return &SnapshotCache{
		mem:    make(map[string][]byte),
		rdb:    rdb,
		prefix: "signaldeck:snapshot:",
	}
}

// Put stores a snapshot. The Redis write is best-effort; a failure there
// never fails the caller's fetch.
func (c *SnapshotCache) Put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}
	c.mu.Lock()
	c.mem[key] = b
	c.mu.Unlock()

	if c.rdb != nil {
		wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.rdb.Set(wctx, c.prefix+key, b, redisTTL).Err(); err != nil {
			return fmt.Errorf("redis snapshot %s: %w", key, err)
		}
	}
	return nil
}

// Get loads a snapshot into dest, preferring the in-process copy and
// falling back to Redis. Returns false when nothing usable is cached.
func (c *SnapshotCache) Get(ctx context.Context, key string, dest any) bool {
	c.mu.RLock()
	b, ok := c.mem[key]
	c.mu.RUnlock()

	if !ok && c.rdb != nil {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		raw, err := c.rdb.Get(rctx, c.prefix+key).Bytes()
		if err != nil {
			return false
		}
		b, ok = raw, true
	}
	if !ok {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}
