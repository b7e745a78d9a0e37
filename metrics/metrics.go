package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one process-local counter.
type MetricID uint16

const (
	// MetricSessionCreated counts sessions persisted by Create.
	MetricSessionCreated MetricID = iota
	// MetricSessionDestroyed counts explicit session destructions.
	MetricSessionDestroyed
	// MetricSessionExpired counts sessions removed by lazy expiry or the sweep.
	MetricSessionExpired
	// MetricSessionExtended counts successful lifetime extensions.
	MetricSessionExtended
	// MetricCacheHit counts cache reads that returned a live entry.
	MetricCacheHit
	// MetricCacheMiss counts cache reads that found nothing usable.
	MetricCacheMiss
	// MetricCacheInvalidation counts entries removed by key, tag, or tenant sweep.
	MetricCacheInvalidation
	// MetricCacheWarmFailure counts loader callbacks that failed during warming.
	MetricCacheWarmFailure
	// MetricLockoutApplied counts lockout records written.
	MetricLockoutApplied
	// MetricRateLimitExceeded counts rate-limit checks that rejected a request.
	MetricRateLimitExceeded
	// MetricLoginFailureRecorded counts failed login attempts appended.
	MetricLoginFailureRecorded
	// MetricStoreError counts store operations that degraded to a safe default.
	MetricStoreError
	// MetricRealtimeDropped counts realtime events dropped on full subscriber buffers.
	MetricRealtimeDropped
	// MetricAuditDropped counts audit events dropped on a full dispatcher buffer.
	MetricAuditDropped
	// MetricStoreLatency is the ping latency histogram.
	MetricStoreLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed-size set of process-local counters. All methods are
// safe for concurrent use and become no-ops on a nil or disabled receiver,
// so call sites never need to branch.
type Metrics struct {
	enabled     bool
	counters    [metricIDCount]paddedCounter
	pingLatency histogram
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters    map[MetricID]uint64
	PingLatency []uint64
}

// New creates a Metrics set. When enabled is false every operation is a no-op.
func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter identified by id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add adds n to the counter identified by id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Value returns the current value of the counter identified by id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// ObservePing records one store round-trip duration in the latency histogram.
func (m *Metrics) ObservePing(d time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	atomic.AddUint64(&m.pingLatency.buckets[bucketIndex(d)], 1)
}

// Snapshot copies every counter and the ping histogram.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{Counters: map[MetricID]uint64{}}
	}

	s := Snapshot{
		Counters:    make(map[MetricID]uint64, int(metricIDCount)),
		PingLatency: make([]uint64, histBucketCount),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	for i := 0; i < histBucketCount; i++ {
		s.PingLatency[i] = atomic.LoadUint64(&m.pingLatency.buckets[i])
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 1:
		return 0
	case ms <= 5:
		return 1
	case ms <= 10:
		return 2
	case ms <= 25:
		return 3
	case ms <= 50:
		return 4
	case ms <= 100:
		return 5
	case ms <= 250:
		return 6
	default:
		return 7
	}
}
