package sppgcore

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gizihub/sppgcore/audit"
	"github.com/gizihub/sppgcore/cache"
	"github.com/gizihub/sppgcore/kv"
	"github.com/gizihub/sppgcore/metrics"
	"github.com/gizihub/sppgcore/realtime"
	"github.com/gizihub/sppgcore/security"
	"github.com/gizihub/sppgcore/session"
)

// Builder wires the sppgcore services. Typical use:
//
//	core, err := sppgcore.New().
//		WithRedis(client).
//		WithLogger(logger).
//		WithAuditSink(audit.NewJSONWriterSink(os.Stdout)).
//		Build()
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger
	sink   audit.Sink
	built  bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing every service.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger passed to every service. Defaults to a no-op.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination for process-side audit events. Events
// are delivered asynchronously through a bounded dispatcher.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles the process-local counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the services. The builder is
// single-use.
func (b *Builder) Build() (*Core, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	if b.redis == nil {
		return nil, ErrRedisRequired
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	b.built = true

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := kv.New(b.redis)
	m := metrics.New(b.config.Metrics.Enabled)

	var dispatcher *audit.Dispatcher
	var sink audit.Sink
	if b.config.Audit.Enabled {
		dispatcher = audit.NewDispatcher(b.sink, b.config.Audit.BufferSize)
		sink = dispatcher
	}

	cacheManager := cache.NewManager(store, logger.Named("cache"), m, sink)
	sessionManager := session.NewManager(store, b.config.Session, logger.Named("session"), m, sink)
	guard := security.NewGuard(store, b.config.Security, logger.Named("security"), m, sink)
	hub := realtime.NewHub(cacheManager, b.config.Realtime.SubscriberBuffer, logger.Named("realtime"), m)

	return &Core{
		Sessions: sessionManager,
		Cache:    cacheManager,
		Security: guard,
		Realtime: hub,
		Store:    store,

		config:     b.config,
		metrics:    m,
		dispatcher: dispatcher,
		log:        logger,
	}, nil
}

// Core is the wired service set, constructed once per process and passed
// by reference to request handlers. There are no module-level singletons;
// everything flows through explicit dependency injection.
type Core struct {
	Sessions *session.Manager
	Cache    *cache.Manager
	Security *security.Guard
	Realtime *realtime.Hub

	// Store is the shared key-value adapter, exposed for admin tooling
	// (key counts, raw introspection). Services never reach around it.
	Store *kv.Store

	config     Config
	metrics    *metrics.Metrics
	dispatcher *audit.Dispatcher
	log        *zap.Logger
}

// Config returns the configuration the core was built with.
func (c *Core) Config() Config {
	return c.config
}

// MetricsSnapshot copies the process-local counters.
func (c *Core) MetricsSnapshot() metrics.Snapshot {
	return c.metrics.Snapshot()
}

// Metrics exposes the counter set for exporters.
func (c *Core) Metrics() *metrics.Metrics {
	return c.metrics
}

// AuditDropped returns the number of audit events lost to a full
// dispatcher buffer.
func (c *Core) AuditDropped() uint64 {
	return c.dispatcher.Dropped()
}

// Close stops the realtime hub and drains the audit dispatcher. The Redis
// client is owned by the caller and is not closed.
func (c *Core) Close() {
	c.Realtime.Close()
	if c.dispatcher != nil {
		c.dispatcher.Close()
	}
}
