package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gizihub/sppgcore/audit"
	"github.com/gizihub/sppgcore/kv"
	"github.com/gizihub/sppgcore/metrics"
)

// Config holds session lifecycle tuning parameters.
type Config struct {
	Lifetime    time.Duration // absolute session lifetime, default 8h
	ActivityTTL time.Duration // activity trail lifetime, decoupled from the record
	ActivityCap int64         // max retained activity entries per session
}

// Manager owns the lifecycle of browser sessions: creation, lazy-expiry
// reads, activity trails, extension, and bulk revocation.
//
// The manager is best-effort by contract: every store failure is logged and
// converted into a nil/false/zero return, never surfaced to the caller. The
// session layer is a cache, not a system of record.
type Manager struct {
	store   *kv.Store
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	sink    audit.Sink

	now func() time.Time
}

// NewManager creates a session [Manager]. logger and sink may be nil.
func NewManager(store *kv.Store, cfg Config, logger *zap.Logger, m *metrics.Metrics, sink audit.Sink) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		cfg:     cfg,
		log:     logger,
		metrics: m,
		sink:    sink,
		now:     time.Now,
	}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func activityKey(sessionID string) string {
	return sessionKey(sessionID) + ":activity"
}

func userSessionsKey(userID string) string {
	return "user-sessions:" + userID
}

// Create generates an opaque random session id, persists the record with a
// TTL equal to the configured lifetime, and registers the id in the owning
// user's session set. Returns nil on any store failure.
func (m *Manager) Create(ctx context.Context, input CreateInput) *Record {
	sessionID, err := newSessionID()
	if err != nil {
		m.log.Error("session id generation failed", zap.Error(err))
		return nil
	}

	now := m.now()
	rec := &Record{
		SessionID:      sessionID,
		UserID:         input.UserID,
		Role:           input.Role,
		TenantID:       input.TenantID,
		UserType:       input.UserType,
		Email:          input.Email,
		DisplayName:    input.DisplayName,
		Permissions:    input.Permissions,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.cfg.Lifetime),
		IP:             input.IP,
		UserAgent:      input.UserAgent,
	}

	if !m.writeRecord(ctx, rec, m.cfg.Lifetime) {
		return nil
	}

	userKey := userSessionsKey(input.UserID)
	if err := m.store.SAdd(ctx, userKey, sessionID); err != nil {
		m.degraded("session set add failed", err, zap.String("userId", input.UserID))
		return nil
	}
	// Keep the index alive at least as long as its newest member.
	if err := m.store.Expire(ctx, userKey, m.cfg.Lifetime); err != nil {
		m.degraded("session set expire failed", err, zap.String("userId", input.UserID))
	}

	m.metrics.Inc(metrics.MetricSessionCreated)
	return rec
}

// Get returns the session record, or nil if it does not exist or has passed
// its embedded expiry. Expired records are deleted on read; the store TTL is
// only a backstop because an extension may leave the app-level expiry
// shorter than the key TTL. A successful read refreshes LastActivityAt and
// rewrites the record with its remaining TTL.
func (m *Manager) Get(ctx context.Context, sessionID string) *Record {
	rec, ok := m.read(ctx, sessionID)
	if !ok || rec == nil {
		return nil
	}

	now := m.now()
	remaining := rec.ExpiresAt.Sub(now)
	if remaining <= 0 {
		m.removeRecord(ctx, rec.UserID, sessionID)
		m.metrics.Inc(metrics.MetricSessionExpired)
		return nil
	}

	rec.LastActivityAt = now
	if !m.writeRecord(ctx, rec, remaining) {
		return nil
	}
	return rec
}

// Validate wraps Get with an optional permission check. An empty
// requiredPermission validates existence only.
func (m *Manager) Validate(ctx context.Context, sessionID, requiredPermission string) *Record {
	rec := m.Get(ctx, sessionID)
	if rec == nil {
		return nil
	}
	if requiredPermission != "" && !rec.HasPermission(requiredPermission) {
		return nil
	}
	return rec
}

// UpdateActivity re-validates the session and appends one entry to its
// capped activity trail. Returns false if the session no longer exists.
func (m *Manager) UpdateActivity(ctx context.Context, sessionID, action string, metadata map[string]string) bool {
	if m.Get(ctx, sessionID) == nil {
		return false
	}

	entry := Activity{
		Timestamp: m.now(),
		Action:    action,
		Metadata:  metadata,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		m.log.Error("activity marshal failed", zap.Error(err))
		return false
	}

	key := activityKey(sessionID)
	if err := m.store.LPush(ctx, key, data); err != nil {
		m.degraded("activity push failed", err, zap.String("sessionId", sessionID))
		return false
	}
	if err := m.store.LTrim(ctx, key, 0, m.cfg.ActivityCap-1); err != nil {
		m.degraded("activity trim failed", err, zap.String("sessionId", sessionID))
	}
	if err := m.store.Expire(ctx, key, m.cfg.ActivityTTL); err != nil {
		m.degraded("activity expire failed", err, zap.String("sessionId", sessionID))
	}
	return true
}

// Activities returns the retained activity trail, most recent first.
// Entries that fail to parse are skipped.
func (m *Manager) Activities(ctx context.Context, sessionID string) []Activity {
	raw, err := m.store.LRange(ctx, activityKey(sessionID), 0, -1)
	if err != nil {
		m.degraded("activity read failed", err, zap.String("sessionId", sessionID))
		return []Activity{}
	}

	out := make([]Activity, 0, len(raw))
	for _, item := range raw {
		var a Activity
		if err := json.Unmarshal(item, &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Destroy deletes the session record, its activity trail, and its entry in
// the owning user's session set. Returns false when the record was already
// gone or the store failed.
func (m *Manager) Destroy(ctx context.Context, sessionID string) bool {
	rec, ok := m.read(ctx, sessionID)
	if !ok {
		return false
	}
	if rec == nil {
		// Record gone; still clear any orphaned activity trail.
		if _, err := m.store.Del(ctx, activityKey(sessionID)); err != nil {
			m.degraded("activity delete failed", err, zap.String("sessionId", sessionID))
		}
		return false
	}

	if !m.removeRecord(ctx, rec.UserID, sessionID) {
		return false
	}
	m.metrics.Inc(metrics.MetricSessionDestroyed)
	return true
}

// DestroyAllForUser revokes every tracked session of a user, firing the
// per-session deletions concurrently, then drops the set itself. Used for
// security incidents such as a password change or suspected compromise.
func (m *Manager) DestroyAllForUser(ctx context.Context, userID string) bool {
	userKey := userSessionsKey(userID)
	ids, err := m.store.SMembers(ctx, userKey)
	if err != nil {
		m.degraded("session set read failed", err, zap.String("userId", userID))
		return false
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			m.removeRecord(ctx, userID, sessionID)
		}(id)
	}
	wg.Wait()

	if _, err := m.store.Del(ctx, userKey); err != nil {
		m.degraded("session set delete failed", err, zap.String("userId", userID))
		return false
	}

	m.metrics.Add(metrics.MetricSessionDestroyed, uint64(len(ids)))
	m.emit(ctx, audit.Event{
		Action:   "session.revoke_all",
		UserID:   userID,
		Success:  true,
		Metadata: map[string]string{"revoked": strconv.Itoa(len(ids))},
	})
	return true
}

// UserSessions resolves every id in the user's session set and returns the
// live subset. Ids that individually resolve to nothing (concurrent expiry
// or revocation) are filtered out, so the result is a point-in-time
// approximation rather than a consistent snapshot.
func (m *Manager) UserSessions(ctx context.Context, userID string) []*Record {
	ids, err := m.store.SMembers(ctx, userSessionsKey(userID))
	if err != nil {
		m.degraded("session set read failed", err, zap.String("userId", userID))
		return []*Record{}
	}

	now := m.now()
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := m.read(ctx, id)
		if !ok || rec == nil {
			continue
		}
		if !rec.ExpiresAt.After(now) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// ActiveSessionCount returns the size of the user's tracked session set.
// The count may include ids whose records have already expired.
func (m *Manager) ActiveSessionCount(ctx context.Context, userID string) int {
	n, err := m.store.SCard(ctx, userSessionsKey(userID))
	if err != nil {
		m.degraded("session set card failed", err, zap.String("userId", userID))
		return 0
	}
	return n
}

// Extend recomputes the expiry as now + hours and rewrites the record with
// a fresh store TTL. The session id is not rotated.
func (m *Manager) Extend(ctx context.Context, sessionID string, hours int) bool {
	if hours <= 0 {
		return false
	}

	rec, ok := m.read(ctx, sessionID)
	if !ok || rec == nil {
		return false
	}

	lifetime := time.Duration(hours) * time.Hour
	rec.ExpiresAt = m.now().Add(lifetime)
	if !m.writeRecord(ctx, rec, lifetime) {
		return false
	}
	m.metrics.Inc(metrics.MetricSessionExtended)
	return true
}

// CleanupExpired scans all session keys and deletes records past their
// app-level expiry. Intended to run periodically outside the request path;
// the store's native TTL handles the common case, this sweep catches
// records whose embedded expiry is shorter than their key TTL. Returns the
// number of sessions removed.
func (m *Manager) CleanupExpired(ctx context.Context) int {
	keys, err := m.store.Scan(ctx, "session:*")
	if err != nil {
		m.degraded("session scan failed", err)
		return 0
	}

	now := m.now()
	removed := 0
	for _, key := range keys {
		if strings.HasSuffix(key, ":activity") {
			continue
		}

		data, err := m.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if rec.ExpiresAt.After(now) {
			continue
		}

		sessionID := strings.TrimPrefix(key, "session:")
		if m.removeRecord(ctx, rec.UserID, sessionID) {
			removed++
		}
	}

	if removed > 0 {
		m.metrics.Add(metrics.MetricSessionExpired, uint64(removed))
	}
	return removed
}

// read fetches and decodes a record. The bool reports whether the store was
// reachable; a (nil, true) result means the record does not exist.
func (m *Manager) read(ctx context.Context, sessionID string) (*Record, bool) {
	data, err := m.store.Get(ctx, sessionKey(sessionID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, true
		}
		m.degraded("session read failed", err, zap.String("sessionId", sessionID))
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		m.log.Warn("corrupt session record", zap.String("sessionId", sessionID), zap.Error(err))
		if _, delErr := m.store.Del(ctx, sessionKey(sessionID)); delErr != nil {
			m.degraded("corrupt session delete failed", delErr, zap.String("sessionId", sessionID))
		}
		return nil, true
	}
	rec.SessionID = sessionID
	return &rec, true
}

func (m *Manager) writeRecord(ctx context.Context, rec *Record, ttl time.Duration) bool {
	data, err := json.Marshal(rec)
	if err != nil {
		m.log.Error("session marshal failed", zap.Error(err))
		return false
	}
	if err := m.store.Set(ctx, sessionKey(rec.SessionID), data, ttl); err != nil {
		m.degraded("session write failed", err, zap.String("sessionId", rec.SessionID))
		return false
	}
	return true
}

func (m *Manager) removeRecord(ctx context.Context, userID, sessionID string) bool {
	if _, err := m.store.Del(ctx, sessionKey(sessionID), activityKey(sessionID)); err != nil {
		m.degraded("session delete failed", err, zap.String("sessionId", sessionID))
		return false
	}
	if userID != "" {
		if err := m.store.SRem(ctx, userSessionsKey(userID), sessionID); err != nil {
			m.degraded("session set remove failed", err, zap.String("userId", userID))
		}
	}
	return true
}

func (m *Manager) degraded(msg string, err error, fields ...zap.Field) {
	m.metrics.Inc(metrics.MetricStoreError)
	m.log.Warn(msg, append(fields, zap.Error(err))...)
}

func (m *Manager) emit(ctx context.Context, event audit.Event) {
	if m.sink == nil {
		return
	}
	event.Timestamp = m.now()
	m.sink.Emit(ctx, event)
}

