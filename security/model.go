package security

import "time"

// AttemptTypeLogin is the default attempt type recorded at the login form.
const AttemptTypeLogin = "login"

// Attempt is one authentication attempt, stored most-recent-first in a
// bounded list under `security:attempts:{identifier}`.
type Attempt struct {
	Identifier string    `json:"identifier"`
	Type       string    `json:"attemptType"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
}

// Lockout is derived state, materialized when the failed-attempt count
// within the trailing window reaches the threshold. It self-expires via
// the store TTL but is also removed early when read after UnlockAt.
type Lockout struct {
	Identifier   string    `json:"identifier"`
	LockedAt     time.Time `json:"lockedAt"`
	UnlockAt     time.Time `json:"unlockAt"`
	AttemptCount int       `json:"attemptCount"`
	Reason       string    `json:"reason"`
}

// RateLimitResult is the structured outcome of one rate-limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// rateWindow is the stored fixed-window counter document under
// `security:ratelimit:{identifier}`. Its JSON layout is part of the
// persisted state and must not change.
type rateWindow struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}

// PasswordCheck reports every policy rule a candidate password violates,
// not just the first.
type PasswordCheck struct {
	Valid  bool
	Errors []string
}

// Event is one per-user security audit entry, stored in a bounded list
// under `security:audit:{userId}`.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Event     string            `json:"event"`
	UserID    string            `json:"userId"`
	IP        string            `json:"ip,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Config holds the security policy. Zero values are rejected by the root
// config validation, so the guard never has to re-default them.
type Config struct {
	MaxLoginAttempts int           // failures within AttemptWindow that trigger lockout
	AttemptWindow    time.Duration // trailing window for lockout evaluation
	LockoutDuration  time.Duration // how long a lockout lasts
	AttemptListCap   int64         // retained attempts per identifier
	AttemptTTL       time.Duration // rolling TTL of the attempt list

	RateLimitWindow time.Duration // fixed window length
	RateLimitMax    int           // requests allowed per window

	AuditListCap int64         // retained audit entries per user
	AuditTTL     time.Duration // audit list lifetime

	PasswordMinLength int
	BcryptCost        int
}
