package sppgcore

import (
	"errors"
	"time"

	"github.com/gizihub/sppgcore/security"
	"github.com/gizihub/sppgcore/session"
)

// Config is the root configuration for the sppgcore services. Construct it
// with [DefaultConfig] and override fields; [Builder.Build] validates the
// result. Config values are read once at build time and treated as
// immutable afterwards.
type Config struct {
	Session  session.Config
	Security security.Config
	Realtime RealtimeConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
REALTIME CONFIG
====================================
*/

// RealtimeConfig tunes the in-process push hub.
type RealtimeConfig struct {
	SubscriberBuffer int // events buffered per subscriber before drops
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig tunes the process-side audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int // events buffered before Emit starts dropping
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the process-local counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production policy of the SPPG dashboard:
// 8-hour sessions, 30-minute default cache TTL, 5 failures in 15 minutes
// for a 30-minute lockout, and 10 requests per 15-minute window.
func DefaultConfig() Config {
	return Config{
		Session: session.Config{
			Lifetime:    8 * time.Hour,
			ActivityTTL: 24 * time.Hour,
			ActivityCap: 100,
		},
		Security: security.Config{
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
			BcryptCost:        12,
		},
		Realtime: RealtimeConfig{
			SubscriberBuffer: 16,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports every invalid field, joined into one error.
func (c Config) Validate() error {
	var errs []error

	if c.Session.Lifetime <= 0 {
		errs = append(errs, errors.New("session lifetime must be positive"))
	}
	if c.Session.ActivityTTL <= 0 {
		errs = append(errs, errors.New("session activity TTL must be positive"))
	}
	if c.Session.ActivityCap <= 0 {
		errs = append(errs, errors.New("session activity cap must be positive"))
	}

	if c.Security.MaxLoginAttempts <= 0 {
		errs = append(errs, errors.New("max login attempts must be positive"))
	}
	if c.Security.AttemptWindow <= 0 {
		errs = append(errs, errors.New("attempt window must be positive"))
	}
	if c.Security.LockoutDuration <= 0 {
		errs = append(errs, errors.New("lockout duration must be positive"))
	}
	if c.Security.AttemptListCap < int64(c.Security.MaxLoginAttempts) {
		errs = append(errs, errors.New("attempt list cap must cover the lockout threshold"))
	}
	if c.Security.AttemptTTL < c.Security.AttemptWindow {
		errs = append(errs, errors.New("attempt TTL must cover the attempt window"))
	}
	if c.Security.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.Security.RateLimitMax <= 0 {
		errs = append(errs, errors.New("rate limit max must be positive"))
	}
	if c.Security.AuditListCap <= 0 {
		errs = append(errs, errors.New("audit list cap must be positive"))
	}
	if c.Security.AuditTTL <= 0 {
		errs = append(errs, errors.New("audit TTL must be positive"))
	}
	if c.Security.PasswordMinLength < 8 {
		errs = append(errs, errors.New("password min length must be at least 8"))
	}
	if c.Security.BcryptCost < 10 || c.Security.BcryptCost > 15 {
		errs = append(errs, errors.New("bcrypt cost must be between 10 and 15"))
	}

	if c.Realtime.SubscriberBuffer <= 0 {
		errs = append(errs, errors.New("realtime subscriber buffer must be positive"))
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		errs = append(errs, errors.New("audit buffer size must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
