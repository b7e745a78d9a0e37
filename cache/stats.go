package cache

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Stats is a point-in-time view of cache effectiveness and store footprint.
type Stats struct {
	Hits            uint64
	Misses          uint64
	HitRate         float64
	EntryCount      int
	MemoryUsedBytes int64
}

// Health reports a store round-trip.
type Health struct {
	Healthy bool
	Latency time.Duration
}

// HitRate returns the process-local hit rate in [0, 1]. With no traffic it
// reports 0.
func (c *Manager) HitRate() float64 {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// StatsSnapshot combines process-local counters with store introspection:
// entry count via a cache-namespace scan, memory via INFO. Store failures
// leave the corresponding field at zero.
func (c *Manager) StatsSnapshot(ctx context.Context) Stats {
	s := Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		HitRate: c.HitRate(),
	}

	keys, err := c.store.Scan(ctx, "cache:*")
	if err != nil {
		c.degraded("stats scan failed", err)
	} else {
		s.EntryCount = len(keys)
	}

	info, err := c.store.Info(ctx, "memory")
	if err != nil {
		c.degraded("stats info failed", err)
	} else {
		s.MemoryUsedBytes = parseUsedMemory(info)
	}

	return s
}

// HealthCheck round-trips a ping and reports latency.
func (c *Manager) HealthCheck(ctx context.Context) Health {
	latency, err := c.store.Ping(ctx)
	if err != nil {
		c.degraded("health ping failed", err)
		return Health{Healthy: false, Latency: latency}
	}
	c.metrics.ObservePing(latency)
	return Health{Healthy: true, Latency: latency}
}

// parseUsedMemory extracts used_memory from INFO output. Returns 0 when
// the field is absent or malformed.
func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, "used_memory:") {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimPrefix(line, "used_memory:"), 10, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}
