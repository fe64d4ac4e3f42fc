// Package cache implements the Redis-backed per-tick intelligence cache
// (SPEC_FULL §4.2): reconcile_conflict results are cached for the lifetime
// of one scenario tick, keyed by cluster signature, and invalidated in bulk
// when the scenario clock advances.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	sharedErrors "github.com/jordigilh/reliefnet/pkg/shared/errors"
	"github.com/jordigilh/reliefnet/pkg/shared/logging"
	"github.com/jordigilh/reliefnet/pkg/metrics"
)

// DefaultTTL bounds how long a tick namespace's entries live even if the
// clock never advances again, so a forgotten cache never grows unbounded.
const DefaultTTL = 10 * time.Minute

// TickCache caches reconcile_conflict results within one scenario tick. A
// nil *redis.Client degrades every Get to a miss and every Set to a no-op,
// so the coordinator runs with or without Redis configured (SPEC_FULL §6).
type TickCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger

	tickMu sync.Mutex
	tick   int64
}

// New builds a TickCache. client may be nil, in which case the cache always
// misses.
func New(client *redis.Client, ttl time.Duration, log *logrus.Logger) *TickCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TickCache{client: client, ttl: ttl, log: log}
}

// Signature builds the cluster-signature cache key from a cluster's report
// ids: sorted so the same cluster hashes the same way regardless of the
// order clustering happened to visit its members in.
func Signature(reportIDs []string) string {
	sorted := append([]string(nil), reportIDs...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, id := range sorted {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get looks up a cached reconcile_conflict result for signature in the
// current tick namespace, decoding dest from the stored JSON. Returns false
// on a miss, a disabled cache, or a Redis error (treated as a miss, never a
// pipeline failure).
func (c *TickCache) Get(ctx context.Context, signature string, dest any) bool {
	if c.client == nil {
		metrics.RecordCacheMiss()
		return false
	}
	raw, err := c.client.Get(ctx, c.key(signature)).Bytes()
	if err != nil {
		metrics.RecordCacheMiss()
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.WithFields(logging.CacheFields("get", signature).ToLogrus()).
			WithError(sharedErrors.CacheError("decode", err)).Warn("cache: malformed cached value, treating as miss")
		metrics.RecordCacheMiss()
		return false
	}
	metrics.RecordCacheHit()
	return true
}

// Set stores value under signature in the current tick namespace. Failure
// to write is logged and otherwise ignored — the cache is an optimization,
// never a correctness dependency.
func (c *TickCache) Set(ctx context.Context, signature string, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).Warn("cache: failed to encode value, skipping store")
		return
	}
	if err := c.client.Set(ctx, c.key(signature), raw, c.ttl).Err(); err != nil {
		c.log.WithFields(logging.CacheFields("set", signature).ToLogrus()).
			WithError(sharedErrors.CacheError("set", err)).Warn("cache: failed to store value")
	}
}

// Invalidate advances the tick namespace, so every prior Get misses without
// needing to delete any keys — old entries simply expire via the cache's configured TTL.
// Called by clock.Set/Advance (SPEC_FULL §4.7).
func (c *TickCache) Invalidate() {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	c.tick++
}

func (c *TickCache) key(signature string) string {
	c.tickMu.Lock()
	tick := c.tick
	c.tickMu.Unlock()
	return "reliefnet:reconcile:" + strconv.FormatInt(tick, 10) + ":" + signature
}
