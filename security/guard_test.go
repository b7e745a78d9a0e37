package security

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/gizihub/sppgcore/kv"
	"github.com/gizihub/sppgcore/metrics"
)

func testConfig() Config {
	return Config{
		MaxLoginAttempts: 5,
		AttemptWindow:    15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
		AttemptListCap:   20,
		AttemptTTL:       24 * time.Hour,

		RateLimitWindow: 15 * time.Minute,
		RateLimitMax:    10,

		AuditListCap: 100,
		AuditTTL:     28 * 24 * time.Hour,

		PasswordMinLength: 12,
		// MinCost keeps hashing fast under test.
		BcryptCost: bcrypt.MinCost,
	}
}

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewGuard(kv.New(rdb), testConfig(), nil, metrics.New(true), nil)

	return g, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestLockout_AfterThresholdFailures(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	base := time.Now()
	g.now = func() time.Time { return base }

	for i := 0; i < 4; i++ {
		g.RecordLoginAttempt(ctx, "user@example.com", "", false, "10.0.0.1", "ua")
	}
	if g.IsAccountLocked(ctx, "user@example.com") != nil {
		t.Fatal("locked before reaching the threshold")
	}

	g.RecordLoginAttempt(ctx, "user@example.com", "", false, "10.0.0.1", "ua")
	lockout := g.IsAccountLocked(ctx, "user@example.com")
	if lockout == nil {
		t.Fatal("expected lockout after 5 failures")
	}
	if lockout.AttemptCount != 5 {
		t.Fatalf("expected 5 counted failures, got %d", lockout.AttemptCount)
	}
	if !lockout.UnlockAt.Equal(base.Add(30 * time.Minute)) {
		t.Fatalf("expected unlock at base+30m, got %v", lockout.UnlockAt)
	}
}

func TestLockout_ExpiresAfterDuration(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	base := time.Now()
	g.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		g.RecordLoginAttempt(ctx, "user@example.com", "", false, "", "")
	}
	if g.IsAccountLocked(ctx, "user@example.com") == nil {
		t.Fatal("expected lockout")
	}

	// Past UnlockAt the record is treated as expired even if the store TTL
	// has not fired yet.
	g.now = func() time.Time { return base.Add(31 * time.Minute) }
	if g.IsAccountLocked(ctx, "user@example.com") != nil {
		t.Fatal("lockout should expire after its duration")
	}
	// The stale record was deleted on that read.
	if g.IsAccountLocked(ctx, "user@example.com") != nil {
		t.Fatal("stale lockout record should be gone")
	}
}

func TestLockout_IgnoresFailuresOutsideWindow(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	base := time.Now()

	// Three failures 20 minutes ago fall outside the 15-minute window.
	g.now = func() time.Time { return base.Add(-20 * time.Minute) }
	for i := 0; i < 3; i++ {
		g.RecordLoginAttempt(ctx, "user@example.com", "", false, "", "")
	}

	g.now = func() time.Time { return base }
	for i := 0; i < 4; i++ {
		g.RecordLoginAttempt(ctx, "user@example.com", "", false, "", "")
	}

	if g.IsAccountLocked(ctx, "user@example.com") != nil {
		t.Fatal("failures outside the window must not count toward lockout")
	}
}

func TestLockout_SuccessesDoNotCount(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		g.RecordLoginAttempt(ctx, "user@example.com", "", false, "", "")
	}
	for i := 0; i < 3; i++ {
		g.RecordLoginAttempt(ctx, "user@example.com", "", true, "", "")
	}

	if g.IsAccountLocked(ctx, "user@example.com") != nil {
		t.Fatal("successful attempts must not trigger lockout")
	}
}

func TestClearLockout(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	if g.ClearLockout(ctx, "user@example.com") {
		t.Fatal("ClearLockout should report false with no record")
	}

	for i := 0; i < 5; i++ {
		g.RecordLoginAttempt(ctx, "user@example.com", "", false, "", "")
	}
	if !g.ClearLockout(ctx, "user@example.com") {
		t.Fatal("ClearLockout should report true for an active lockout")
	}
	if g.IsAccountLocked(ctx, "user@example.com") != nil {
		t.Fatal("account still locked after ClearLockout")
	}
}

func TestLoginAttempts_BoundedMostRecentFirst(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 25; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		g.now = func() time.Time { return ts }
		g.RecordLoginAttempt(ctx, "user@example.com", "", true, "", "")
	}

	attempts := g.LoginAttempts(ctx, "user@example.com")
	if len(attempts) != 20 {
		t.Fatalf("expected list capped at 20, got %d", len(attempts))
	}
	if !attempts[0].Timestamp.After(attempts[1].Timestamp) {
		t.Fatal("expected most-recent-first order")
	}
	if attempts[0].Type != AttemptTypeLogin {
		t.Fatalf("expected default attempt type, got %q", attempts[0].Type)
	}
}

func TestLoginAttempts_SkipsMalformedEntries(t *testing.T) {
	g, mr, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	g.RecordLoginAttempt(ctx, "user@example.com", "", true, "", "")
	if _, err := mr.Lpush("security:attempts:user@example.com", "{broken"); err != nil {
		t.Fatalf("lpush failed: %v", err)
	}

	attempts := g.LoginAttempts(ctx, "user@example.com")
	if len(attempts) != 1 {
		t.Fatalf("expected 1 parsed attempt, got %d", len(attempts))
	}
}

func TestRateLimit_BlocksEleventhRequest(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		res := g.CheckRateLimit(ctx, "api:user1")
		if !res.Allowed {
			t.Fatalf("request %d unexpectedly blocked", i+1)
		}
		if res.Remaining != 10-(i+1) {
			t.Fatalf("request %d: expected %d remaining, got %d", i+1, 10-(i+1), res.Remaining)
		}
	}

	res := g.CheckRateLimit(ctx, "api:user1")
	if res.Allowed {
		t.Fatal("11th request should be blocked")
	}
	if res.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", res.Remaining)
	}
}

func TestRateLimit_ResetsAfterWindow(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	base := time.Now()
	g.now = func() time.Time { return base }

	for i := 0; i < 11; i++ {
		g.CheckRateLimit(ctx, "api:user1")
	}
	if g.CheckRateLimit(ctx, "api:user1").Allowed {
		t.Fatal("expected blocked inside window")
	}

	g.now = func() time.Time { return base.Add(16 * time.Minute) }
	res := g.CheckRateLimit(ctx, "api:user1")
	if !res.Allowed {
		t.Fatal("expected fresh window after expiry")
	}
	if res.Remaining != 9 {
		t.Fatalf("expected 9 remaining in fresh window, got %d", res.Remaining)
	}
	if !res.ResetTime.Equal(base.Add(16*time.Minute + 15*time.Minute)) {
		t.Fatalf("unexpected reset time %v", res.ResetTime)
	}
}

func TestRateLimit_IdentifiersAreIndependent(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < 11; i++ {
		g.CheckRateLimit(ctx, "api:user1")
	}
	if !g.CheckRateLimit(ctx, "api:user2").Allowed {
		t.Fatal("user2 blocked by user1's window")
	}
}

func TestRateLimit_PermissiveOnStoreFailure(t *testing.T) {
	g, mr, done := newTestGuard(t)
	defer done()

	mr.Close()
	res := g.CheckRateLimit(context.Background(), "api:user1")
	if !res.Allowed {
		t.Fatal("store failure must degrade to allow")
	}
}

func TestHashVerify_Password(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	hash, err := g.HashPassword("Correct-Horse-1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "Correct-Horse-1" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !g.VerifyPassword("Correct-Horse-1", hash) {
		t.Fatal("correct password rejected")
	}
	if g.VerifyPassword("wrong-password", hash) {
		t.Fatal("wrong password accepted")
	}
	if g.VerifyPassword("Correct-Horse-1", "not-a-bcrypt-hash") {
		t.Fatal("malformed hash must verify as false")
	}
}

func TestValidatePassword_Policy(t *testing.T) {
	g, _, done := newTestGuard(t)
	defer done()

	check := g.ValidatePassword("Str0ng!Passw0rd")
	if !check.Valid {
		t.Fatalf("expected valid, got violations %v", check.Errors)
	}

	check = g.ValidatePassword("short")
	if check.Valid {
		t.Fatal("expected invalid for short password")
	}
	foundLength := false
	for _, msg := range check.Errors {
		if strings.Contains(msg, "12 characters") {
			foundLength = true
		}
	}
	if !foundLength {
		t.Fatalf("expected length violation, got %v", check.Errors)
	}

	// All four class rules plus length at once.
	check = g.ValidatePassword("")
	if len(check.Errors) != 5 {
		t.Fatalf("expected 5 violations for empty password, got %v", check.Errors)
	}

	check = g.ValidatePassword("alllowercase1!aa")
	if check.Valid {
		t.Fatal("expected invalid without uppercase")
	}
	if len(check.Errors) != 1 {
		t.Fatalf("expected only the uppercase violation, got %v", check.Errors)
	}
}

func TestSecurityEvents_RoundTrip(t *testing.T) {
	g, mr, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	g.LogSecurityEvent(ctx, "u1", "password_changed", map[string]string{"by": "self"}, "10.0.0.1")
	g.LogSecurityEvent(ctx, "u1", "mfa_disabled", nil, "10.0.0.1")

	events := g.SecurityEvents(ctx, "u1")
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != "mfa_disabled" {
		t.Fatalf("expected most-recent-first order, got %q", events[0].Event)
	}
	if events[1].Details["by"] != "self" {
		t.Fatalf("details lost: %+v", events[1])
	}

	if ttl := mr.TTL("security:audit:u1"); ttl != 28*24*time.Hour {
		t.Fatalf("expected 28d TTL on audit list, got %v", ttl)
	}

	if got := g.SecurityEvents(ctx, "other"); len(got) != 0 {
		t.Fatalf("expected no events for other user, got %d", len(got))
	}
}

func TestAttemptList_TTLApplied(t *testing.T) {
	g, mr, done := newTestGuard(t)
	defer done()

	g.RecordLoginAttempt(context.Background(), "user@example.com", "", true, "", "")
	if ttl := mr.TTL("security:attempts:user@example.com"); ttl != 24*time.Hour {
		t.Fatalf("expected 24h TTL on attempt list, got %v", ttl)
	}
}
