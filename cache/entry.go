package cache

import (
	"encoding/json"
	"time"
)

// TTL classes used across the dashboard. Medium is the default.
const (
	TTLShort  = 5 * time.Minute
	TTLMedium = 30 * time.Minute
	TTLLong   = 2 * time.Hour
	TTLDay    = 24 * time.Hour
)

// tagIndexGrace is added to a tag set's TTL so the reverse index slightly
// outlives its shortest-lived member. This is a heuristic: an entry stored
// with a much longer TTL than a sibling under the same tag can still
// outlive the index. The read path never consults tags, so a stale or
// missing index only wastes effort during InvalidateByTag.
const tagIndexGrace = time.Hour

// Entry is the stored envelope around one cached payload. The embedded
// ExpiresAt is checked on read even though the store TTL should have
// evicted the key already, guarding against clock skew and TTL-extension
// bugs.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Version   int             `json:"version"`
	TenantID  string          `json:"tenantId,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
}

// Options tune one Set call. Zero values mean TTLMedium, no tags, version 1.
type Options struct {
	TTL     time.Duration
	Tags    []string
	Version int
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = TTLMedium
	}
	if o.Version <= 0 {
		o.Version = 1
	}
	return o
}

const globalNamespace = "global"

func namespace(tenantID string) string {
	if tenantID == "" {
		return globalNamespace
	}
	return tenantID
}

func cacheKey(tenantID, key string) string {
	return "cache:" + namespace(tenantID) + ":" + key
}

func tagKey(tenantID, tag string) string {
	return "tag:" + namespace(tenantID) + ":" + tag
}
