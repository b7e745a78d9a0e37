package internaldefs

import (
	"github.com/gizihub/sppgcore/metrics"
)

// CounterDef binds a metric id to its exported name and help text.
type CounterDef struct {
	ID   metrics.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: metrics.MetricSessionCreated, Name: "sppgcore_session_created_total", Help: "Sessions created."},
	{ID: metrics.MetricSessionDestroyed, Name: "sppgcore_session_destroyed_total", Help: "Sessions explicitly destroyed."},
	{ID: metrics.MetricSessionExpired, Name: "sppgcore_session_expired_total", Help: "Sessions removed by lazy expiry or the maintenance sweep."},
	{ID: metrics.MetricSessionExtended, Name: "sppgcore_session_extended_total", Help: "Session lifetime extensions."},
	{ID: metrics.MetricCacheHit, Name: "sppgcore_cache_hit_total", Help: "Cache reads returning a live entry."},
	{ID: metrics.MetricCacheMiss, Name: "sppgcore_cache_miss_total", Help: "Cache reads finding nothing usable."},
	{ID: metrics.MetricCacheInvalidation, Name: "sppgcore_cache_invalidation_total", Help: "Cache entries removed by key, tag, or tenant sweep."},
	{ID: metrics.MetricCacheWarmFailure, Name: "sppgcore_cache_warm_failure_total", Help: "Cache warm loader failures."},
	{ID: metrics.MetricLockoutApplied, Name: "sppgcore_lockout_applied_total", Help: "Account lockouts applied."},
	{ID: metrics.MetricRateLimitExceeded, Name: "sppgcore_rate_limit_exceeded_total", Help: "Rate-limit checks that rejected a request."},
	{ID: metrics.MetricLoginFailureRecorded, Name: "sppgcore_login_failure_recorded_total", Help: "Failed login attempts recorded."},
	{ID: metrics.MetricStoreError, Name: "sppgcore_store_error_total", Help: "Store operations degraded to a safe default."},
	{ID: metrics.MetricRealtimeDropped, Name: "sppgcore_realtime_dropped_total", Help: "Realtime events dropped on full subscriber buffers."},
	{ID: metrics.MetricAuditDropped, Name: "sppgcore_audit_dropped_total", Help: "Audit events dropped inside the services."},
}

// PingHistogramName is the exported name of the store latency histogram.
const PingHistogramName = "sppgcore_store_ping_duration_ms"

// HistogramBounds are the upper bucket bounds in milliseconds, Prometheus
// `le` label form. Must match the bucketing in the metrics package.
var HistogramBounds = [8]string{"1", "5", "10", "25", "50", "100", "250", "+Inf"}

// HistogramBoundSuffix mirrors HistogramBounds with names usable in OTel
// instrument identifiers.
var HistogramBoundSuffix = [8]string{"1", "5", "10", "25", "50", "100", "250", "inf"}

// NormalizeBuckets pads or truncates a snapshot bucket slice to the fixed
// bucket count.
func NormalizeBuckets(buckets []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(buckets); i++ {
		out[i] = buckets[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms use.
func CumulativeBuckets(buckets [8]uint64) [8]uint64 {
	var out [8]uint64
	var sum uint64
	for i, v := range buckets {
		sum += v
		out[i] = sum
	}
	return out
}
