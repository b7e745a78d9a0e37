package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gizihub/sppgcore/audit"
	"github.com/gizihub/sppgcore/kv"
	"github.com/gizihub/sppgcore/metrics"
)

// Manager is a tenant-namespaced, tag-indexed cache over the shared
// key-value store. Tags are a write-side reverse index used only for coarse
// bulk invalidation; the read path never consults them, so a stale index
// entry cannot produce a stale read.
//
// Hit/miss accounting is process-local: multiple processes each report
// their own rate.
type Manager struct {
	store   *kv.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	sink    audit.Sink

	hits   atomic.Uint64
	misses atomic.Uint64

	now func() time.Time
}

// NewManager creates a cache [Manager]. logger and sink may be nil.
func NewManager(store *kv.Store, logger *zap.Logger, m *metrics.Metrics, sink audit.Sink) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		log:     logger,
		metrics: m,
		sink:    sink,
		now:     time.Now,
	}
}

// Set stores data under the tenant-namespaced key and registers the key in
// every tag's reverse-index set. Tag sets receive the entry TTL plus one
// hour so the index outlives its members. Returns false on marshal or
// store failure.
func (c *Manager) Set(ctx context.Context, key string, data any, tenantID string, opts Options) bool {
	opts = opts.withDefaults()

	payload, err := json.Marshal(data)
	if err != nil {
		c.log.Error("cache payload marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}

	now := c.now()
	entry := Entry{
		Data:      payload,
		CreatedAt: now,
		ExpiresAt: now.Add(opts.TTL),
		Version:   opts.Version,
		TenantID:  tenantID,
		Tags:      opts.Tags,
	}
	blob, err := json.Marshal(entry)
	if err != nil {
		c.log.Error("cache entry marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}

	nsKey := cacheKey(tenantID, key)
	if err := c.store.Set(ctx, nsKey, blob, opts.TTL); err != nil {
		c.degraded("cache write failed", err, zap.String("key", nsKey))
		return false
	}

	for _, tag := range opts.Tags {
		tk := tagKey(tenantID, tag)
		if err := c.store.SAdd(ctx, tk, nsKey); err != nil {
			c.degraded("tag index add failed", err, zap.String("tag", tk))
			continue
		}
		if err := c.store.Expire(ctx, tk, opts.TTL+tagIndexGrace); err != nil {
			c.degraded("tag index expire failed", err, zap.String("tag", tk))
		}
	}
	return true
}

// Get reads the entry under the tenant-namespaced key into dest. A missing,
// corrupt, or expired entry counts as a miss; expired and corrupt entries
// are deleted eagerly. Returns true only when dest was populated.
func (c *Manager) Get(ctx context.Context, key, tenantID string, dest any) bool {
	nsKey := cacheKey(tenantID, key)

	blob, err := c.store.Get(ctx, nsKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.degraded("cache read failed", err, zap.String("key", nsKey))
		}
		c.miss()
		return false
	}

	var entry Entry
	if err := json.Unmarshal(blob, &entry); err != nil {
		c.log.Warn("corrupt cache entry", zap.String("key", nsKey), zap.Error(err))
		c.deleteQuiet(ctx, nsKey)
		c.miss()
		return false
	}

	if !entry.ExpiresAt.After(c.now()) {
		c.deleteQuiet(ctx, nsKey)
		c.miss()
		return false
	}

	if err := json.Unmarshal(entry.Data, dest); err != nil {
		c.log.Warn("cache payload unmarshal failed", zap.String("key", nsKey), zap.Error(err))
		c.miss()
		return false
	}

	c.hits.Add(1)
	c.metrics.Inc(metrics.MetricCacheHit)
	return true
}

// Invalidate deletes the tenant-namespaced key directly. Tag-index
// membership is not cleaned up here; stale references are tolerated and
// removed lazily by InvalidateByTag.
func (c *Manager) Invalidate(ctx context.Context, key, tenantID string) bool {
	nsKey := cacheKey(tenantID, key)
	n, err := c.store.Del(ctx, nsKey)
	if err != nil {
		c.degraded("cache invalidate failed", err, zap.String("key", nsKey))
		return false
	}
	if n > 0 {
		c.metrics.Inc(metrics.MetricCacheInvalidation)
	}
	return n > 0
}

// InvalidateByTag deletes every key currently indexed under the tag, then
// the index set itself. Returns the number of keys actually removed;
// index members that no longer exist do not count.
func (c *Manager) InvalidateByTag(ctx context.Context, tag, tenantID string) int {
	tk := tagKey(tenantID, tag)
	members, err := c.store.SMembers(ctx, tk)
	if err != nil {
		c.degraded("tag index read failed", err, zap.String("tag", tk))
		return 0
	}

	removed := 0
	for _, member := range members {
		n, err := c.store.Del(ctx, member)
		if err != nil {
			c.degraded("tagged key delete failed", err, zap.String("key", member))
			continue
		}
		removed += n
	}

	if _, err := c.store.Del(ctx, tk); err != nil {
		c.degraded("tag index delete failed", err, zap.String("tag", tk))
	}

	if removed > 0 {
		c.metrics.Add(metrics.MetricCacheInvalidation, uint64(removed))
	}
	return removed
}

// InvalidateTenant pattern-scans every cache and tag key under the tenant
// namespace and deletes them all. An O(n) sweep for tenant offboarding or
// full refresh, not routine invalidation. Returns the number of keys
// deleted.
func (c *Manager) InvalidateTenant(ctx context.Context, tenantID string) int {
	ns := namespace(tenantID)
	removed := 0

	for _, pattern := range []string{"cache:" + ns + ":*", "tag:" + ns + ":*"} {
		keys, err := c.store.Scan(ctx, pattern)
		if err != nil {
			c.degraded("tenant scan failed", err, zap.String("pattern", pattern))
			continue
		}
		if len(keys) == 0 {
			continue
		}
		n, err := c.store.Del(ctx, keys...)
		if err != nil {
			c.degraded("tenant delete failed", err, zap.String("pattern", pattern))
			continue
		}
		removed += n
	}

	if removed > 0 {
		c.metrics.Add(metrics.MetricCacheInvalidation, uint64(removed))
	}
	c.emit(ctx, audit.Event{
		Action:   "cache.flush_tenant",
		TenantID: tenantID,
		Success:  true,
	})
	return removed
}

// Warm populates the key by calling loader and storing its result. Loader
// failures are logged and reported as false, never propagated.
func (c *Manager) Warm(ctx context.Context, key, tenantID string, opts Options, loader func(ctx context.Context) (any, error)) bool {
	data, err := loader(ctx)
	if err != nil {
		c.metrics.Inc(metrics.MetricCacheWarmFailure)
		c.log.Warn("cache warm loader failed",
			zap.String("key", key),
			zap.String("tenantId", tenantID),
			zap.Error(err))
		return false
	}
	return c.Set(ctx, key, data, tenantID, opts)
}

func (c *Manager) miss() {
	c.misses.Add(1)
	c.metrics.Inc(metrics.MetricCacheMiss)
}

func (c *Manager) deleteQuiet(ctx context.Context, nsKey string) {
	if _, err := c.store.Del(ctx, nsKey); err != nil {
		c.degraded("eager delete failed", err, zap.String("key", nsKey))
	}
}

func (c *Manager) degraded(msg string, err error, fields ...zap.Field) {
	c.metrics.Inc(metrics.MetricStoreError)
	c.log.Warn(msg, append(fields, zap.Error(err))...)
}

func (c *Manager) emit(ctx context.Context, event audit.Event) {
	if c.sink == nil {
		return
	}
	event.Timestamp = c.now()
	c.sink.Emit(ctx, event)
}
