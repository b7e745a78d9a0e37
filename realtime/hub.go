package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gizihub/sppgcore/metrics"
)

// EventType discriminates the event union. Each type fixes which payload
// fields of [Event] are meaningful.
type EventType string

const (
	// EventDataChanged announces that domain data behind a cache tag
	// changed; the hub invalidates the tag before fan-out and subscribers
	// refetch.
	EventDataChanged EventType = "data_changed"
	// EventCacheInvalidated announces that a cache key or tag was already
	// invalidated elsewhere; fan-out only.
	EventCacheInvalidated EventType = "cache_invalidated"
	// EventSessionRevoked tells UI transports to terminate the named
	// session's connection.
	EventSessionRevoked EventType = "session_revoked"
)

// Event is one push-channel message. Tag is set for EventDataChanged and
// EventCacheInvalidated; SessionID for EventSessionRevoked; Key optionally
// narrows an invalidation to a single logical key.
type Event struct {
	Type      EventType `json:"type"`
	TenantID  string    `json:"tenantId,omitempty"`
	Tag       string    `json:"tag,omitempty"`
	Key       string    `json:"key,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	At        time.Time `json:"at"`
}

// CacheInvalidator is the slice of the cache manager the hub needs.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, key, tenantID string) bool
	InvalidateByTag(ctx context.Context, tag, tenantID string) int
}

type subscriber struct {
	ch     chan Event
	tenant string
}

// Hub is the process-side source of the dashboard's push channel. UI
// transports (SSE or WebSocket, handled elsewhere) subscribe and drain;
// producers publish domain-change events. For EventDataChanged the hub
// invalidates the affected cache entries before delivering, so a
// subscriber that refetches on receipt can never read the stale entry.
//
// Delivery is best-effort: a subscriber that stops draining loses events
// (counted, never blocking the publisher).
type Hub struct {
	cache   CacheInvalidator
	log     *zap.Logger
	metrics *metrics.Metrics
	buffer  int

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool

	dropped atomic.Uint64
}

// NewHub creates a hub delivering through per-subscriber buffers of the
// given size. cache may be nil, which disables invalidation-on-publish.
func NewHub(cache CacheInvalidator, buffer int, logger *zap.Logger, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cache:   cache,
		log:     logger,
		metrics: m,
		buffer:  buffer,
		subs:    make(map[int]*subscriber),
	}
}

// Subscribe registers a consumer for the tenant's events. An empty tenant
// id subscribes to every tenant (platform observers). The returned cancel
// function is idempotent and closes the channel.
func (h *Hub) Subscribe(tenantID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	sub := &subscriber{
		ch:     make(chan Event, h.buffer),
		tenant: tenantID,
	}
	h.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish invalidates affected cache state (for EventDataChanged) and fans
// the event out to the tenant's subscribers and to all-tenant observers.
func (h *Hub) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	if event.Type == EventDataChanged && h.cache != nil {
		if event.Tag != "" {
			n := h.cache.InvalidateByTag(ctx, event.Tag, event.TenantID)
			h.log.Debug("tag invalidated on publish",
				zap.String("tag", event.Tag),
				zap.String("tenantId", event.TenantID),
				zap.Int("removed", n))
		} else if event.Key != "" {
			h.cache.Invalidate(ctx, event.Key, event.TenantID)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	for _, sub := range h.subs {
		if sub.tenant != "" && sub.tenant != event.TenantID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
			h.metrics.Inc(metrics.MetricRealtimeDropped)
		}
	}
}

// Dropped returns the number of events lost to full subscriber buffers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close unregisters and closes every subscriber channel. Publishing after
// Close is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
