package security

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gizihub/sppgcore/audit"
	"github.com/gizihub/sppgcore/kv"
	"github.com/gizihub/sppgcore/metrics"
)

// Guard implements login-attempt tracking, sliding-window lockout, generic
// rate limiting, password policy enforcement, and per-user audit logging.
//
// The guard is defense-in-depth, not a hard security boundary: every store
// failure degrades to the permissive branch (rate limits allow, lockout
// reads report unlocked) after logging. Availability wins over strict
// enforcement.
type Guard struct {
	store   *kv.Store
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	sink    audit.Sink

	now func() time.Time
}

// NewGuard creates a security [Guard]. logger and sink may be nil.
func NewGuard(store *kv.Store, cfg Config, logger *zap.Logger, m *metrics.Metrics, sink audit.Sink) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		store:   store,
		cfg:     cfg,
		log:     logger,
		metrics: m,
		sink:    sink,
		now:     time.Now,
	}
}

func attemptsKey(identifier string) string {
	return "security:attempts:" + identifier
}

func lockoutKey(identifier string) string {
	return "security:lockout:" + identifier
}

func rateLimitKey(identifier string) string {
	return "security:ratelimit:" + identifier
}

func auditKey(userID string) string {
	return "security:audit:" + userID
}

// RecordLoginAttempt appends one attempt to the identifier's bounded,
// most-recent-first list and refreshes its rolling TTL. A failed attempt
// immediately re-evaluates lockout from the trailing window.
func (g *Guard) RecordLoginAttempt(ctx context.Context, identifier, attemptType string, success bool, ip, userAgent string) {
	if attemptType == "" {
		attemptType = AttemptTypeLogin
	}

	attempt := Attempt{
		Identifier: identifier,
		Type:       attemptType,
		Timestamp:  g.now(),
		Success:    success,
		IP:         ip,
		UserAgent:  userAgent,
	}
	data, err := json.Marshal(attempt)
	if err != nil {
		g.log.Error("attempt marshal failed", zap.Error(err))
		return
	}

	key := attemptsKey(identifier)
	if err := g.store.LPush(ctx, key, data); err != nil {
		g.degraded("attempt push failed", err, zap.String("identifier", identifier))
		return
	}
	if err := g.store.LTrim(ctx, key, 0, g.cfg.AttemptListCap-1); err != nil {
		g.degraded("attempt trim failed", err, zap.String("identifier", identifier))
	}
	if err := g.store.Expire(ctx, key, g.cfg.AttemptTTL); err != nil {
		g.degraded("attempt expire failed", err, zap.String("identifier", identifier))
	}

	if !success {
		g.metrics.Inc(metrics.MetricLoginFailureRecorded)
		g.checkAndApplyLockout(ctx, identifier, ip)
	}
}

// checkAndApplyLockout recomputes the lockout decision from the stored
// attempt list. Entries that fail to parse are skipped. The read-count-
// write sequence is not atomic; two concurrent failures can both read the
// same count and under-trigger, an accepted race for best-effort throttling.
func (g *Guard) checkAndApplyLockout(ctx context.Context, identifier, ip string) {
	raw, err := g.store.LRange(ctx, attemptsKey(identifier), 0, -1)
	if err != nil {
		g.degraded("attempt read failed", err, zap.String("identifier", identifier))
		return
	}

	now := g.now()
	windowStart := now.Add(-g.cfg.AttemptWindow)
	failed := 0
	for _, item := range raw {
		var a Attempt
		if err := json.Unmarshal(item, &a); err != nil {
			continue
		}
		if !a.Success && a.Timestamp.After(windowStart) {
			failed++
		}
	}

	if failed < g.cfg.MaxLoginAttempts {
		return
	}

	lockout := Lockout{
		Identifier:   identifier,
		LockedAt:     now,
		UnlockAt:     now.Add(g.cfg.LockoutDuration),
		AttemptCount: failed,
		Reason:       "too many failed login attempts",
	}
	data, err := json.Marshal(lockout)
	if err != nil {
		g.log.Error("lockout marshal failed", zap.Error(err))
		return
	}
	if err := g.store.Set(ctx, lockoutKey(identifier), data, g.cfg.LockoutDuration); err != nil {
		g.degraded("lockout write failed", err, zap.String("identifier", identifier))
		return
	}

	g.metrics.Inc(metrics.MetricLockoutApplied)
	g.emit(ctx, audit.Event{
		Action:     "security.lockout",
		Identifier: identifier,
		IP:         ip,
		Success:    true,
		Metadata:   map[string]string{"failedAttempts": strconv.Itoa(failed)},
	})
}

// IsAccountLocked returns the active lockout record, or nil. A record whose
// UnlockAt has already passed (clock skew, TTL mismatch) is deleted and
// reported as unlocked.
func (g *Guard) IsAccountLocked(ctx context.Context, identifier string) *Lockout {
	data, err := g.store.Get(ctx, lockoutKey(identifier))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			g.degraded("lockout read failed", err, zap.String("identifier", identifier))
		}
		return nil
	}

	var lockout Lockout
	if err := json.Unmarshal(data, &lockout); err != nil {
		g.log.Warn("corrupt lockout record", zap.String("identifier", identifier), zap.Error(err))
		g.deleteQuiet(ctx, lockoutKey(identifier))
		return nil
	}

	if !lockout.UnlockAt.After(g.now()) {
		g.deleteQuiet(ctx, lockoutKey(identifier))
		return nil
	}
	return &lockout
}

// ClearLockout removes a lockout ahead of its expiry (manual unlock by an
// operator). Reports whether a record existed.
func (g *Guard) ClearLockout(ctx context.Context, identifier string) bool {
	n, err := g.store.Del(ctx, lockoutKey(identifier))
	if err != nil {
		g.degraded("lockout delete failed", err, zap.String("identifier", identifier))
		return false
	}
	return n > 0
}

// CheckRateLimit enforces a fixed window per identifier. The stored window
// document is read, incremented, and rewritten without atomicity (see
// package doc). On store errors the permissive branch wins and the request
// is allowed.
func (g *Guard) CheckRateLimit(ctx context.Context, identifier string) RateLimitResult {
	now := g.now()
	key := rateLimitKey(identifier)

	var window rateWindow
	data, err := g.store.Get(ctx, key)
	switch {
	case err == nil:
		if unmarshalErr := json.Unmarshal(data, &window); unmarshalErr != nil {
			g.log.Warn("corrupt rate window", zap.String("identifier", identifier), zap.Error(unmarshalErr))
			window = rateWindow{}
		}
	case errors.Is(err, kv.ErrNotFound):
		// first request for this identifier
	default:
		g.degraded("rate window read failed", err, zap.String("identifier", identifier))
		return RateLimitResult{Allowed: true, Remaining: g.cfg.RateLimitMax, ResetTime: now.Add(g.cfg.RateLimitWindow)}
	}

	if window.WindowEnd.IsZero() || now.After(window.WindowEnd) {
		window = rateWindow{
			Count:       1,
			WindowStart: now,
			WindowEnd:   now.Add(g.cfg.RateLimitWindow),
		}
	} else {
		window.Count++
	}

	blob, err := json.Marshal(window)
	if err != nil {
		g.log.Error("rate window marshal failed", zap.Error(err))
		return RateLimitResult{Allowed: true, Remaining: g.cfg.RateLimitMax, ResetTime: window.WindowEnd}
	}
	ttl := window.WindowEnd.Sub(now)
	if err := g.store.Set(ctx, key, blob, ttl); err != nil {
		g.degraded("rate window write failed", err, zap.String("identifier", identifier))
		return RateLimitResult{Allowed: true, Remaining: g.cfg.RateLimitMax, ResetTime: window.WindowEnd}
	}

	remaining := g.cfg.RateLimitMax - window.Count
	if remaining < 0 {
		remaining = 0
	}
	allowed := window.Count <= g.cfg.RateLimitMax
	if !allowed {
		g.metrics.Inc(metrics.MetricRateLimitExceeded)
	}
	return RateLimitResult{Allowed: allowed, Remaining: remaining, ResetTime: window.WindowEnd}
}

// LogSecurityEvent appends a structured entry to the user's bounded audit
// list and refreshes its TTL.
func (g *Guard) LogSecurityEvent(ctx context.Context, userID, event string, details map[string]string, ip string) {
	entry := Event{
		Timestamp: g.now(),
		Event:     event,
		UserID:    userID,
		IP:        ip,
		Details:   details,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		g.log.Error("security event marshal failed", zap.Error(err))
		return
	}

	key := auditKey(userID)
	if err := g.store.LPush(ctx, key, data); err != nil {
		g.degraded("security event push failed", err, zap.String("userId", userID))
		return
	}
	if err := g.store.LTrim(ctx, key, 0, g.cfg.AuditListCap-1); err != nil {
		g.degraded("security event trim failed", err, zap.String("userId", userID))
	}
	if err := g.store.Expire(ctx, key, g.cfg.AuditTTL); err != nil {
		g.degraded("security event expire failed", err, zap.String("userId", userID))
	}
}

// LoginAttempts returns the retained attempts for an identifier, most
// recent first. Malformed entries are skipped.
func (g *Guard) LoginAttempts(ctx context.Context, identifier string) []Attempt {
	raw, err := g.store.LRange(ctx, attemptsKey(identifier), 0, -1)
	if err != nil {
		g.degraded("attempt read failed", err, zap.String("identifier", identifier))
		return []Attempt{}
	}

	out := make([]Attempt, 0, len(raw))
	for _, item := range raw {
		var a Attempt
		if err := json.Unmarshal(item, &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SecurityEvents returns the retained audit entries for a user, most
// recent first. Malformed entries are skipped.
func (g *Guard) SecurityEvents(ctx context.Context, userID string) []Event {
	raw, err := g.store.LRange(ctx, auditKey(userID), 0, -1)
	if err != nil {
		g.degraded("security event read failed", err, zap.String("userId", userID))
		return []Event{}
	}

	out := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (g *Guard) deleteQuiet(ctx context.Context, key string) {
	if _, err := g.store.Del(ctx, key); err != nil {
		g.degraded("delete failed", err, zap.String("key", key))
	}
}

func (g *Guard) degraded(msg string, err error, fields ...zap.Field) {
	g.metrics.Inc(metrics.MetricStoreError)
	g.log.Warn(msg, append(fields, zap.Error(err))...)
}

func (g *Guard) emit(ctx context.Context, event audit.Event) {
	if g.sink == nil {
		return
	}
	event.Timestamp = g.now()
	g.sink.Emit(ctx, event)
}
