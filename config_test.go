package sppgcore

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Validates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultConfig_Policy(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Session.Lifetime != 8*time.Hour {
		t.Fatalf("expected 8h session lifetime, got %v", cfg.Session.Lifetime)
	}
	if cfg.Security.MaxLoginAttempts != 5 || cfg.Security.LockoutDuration != 30*time.Minute {
		t.Fatalf("unexpected lockout policy: %+v", cfg.Security)
	}
	if cfg.Security.RateLimitMax != 10 || cfg.Security.RateLimitWindow != 15*time.Minute {
		t.Fatalf("unexpected rate limit policy: %+v", cfg.Security)
	}
	if cfg.Security.PasswordMinLength != 12 {
		t.Fatalf("expected 12-char password minimum, got %d", cfg.Security.PasswordMinLength)
	}
}

func TestValidate_RejectsInvalidFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "zero session lifetime",
			mutate: func(c *Config) { c.Session.Lifetime = 0 },
			want:   "session lifetime",
		},
		{
			name:   "zero lockout threshold",
			mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 },
			want:   "max login attempts",
		},
		{
			name:   "attempt cap below threshold",
			mutate: func(c *Config) { c.Security.AttemptListCap = 3 },
			want:   "attempt list cap",
		},
		{
			name:   "attempt TTL shorter than window",
			mutate: func(c *Config) { c.Security.AttemptTTL = time.Minute },
			want:   "attempt TTL",
		},
		{
			name:   "weak password minimum",
			mutate: func(c *Config) { c.Security.PasswordMinLength = 4 },
			want:   "password min length",
		},
		{
			name:   "bcrypt cost out of range",
			mutate: func(c *Config) { c.Security.BcryptCost = 4 },
			want:   "bcrypt cost",
		},
		{
			name:   "zero realtime buffer",
			mutate: func(c *Config) { c.Realtime.SubscriberBuffer = 0 },
			want:   "realtime subscriber buffer",
		},
		{
			name:   "audit enabled with zero buffer",
			mutate: func(c *Config) { c.Audit.BufferSize = 0 },
			want:   "audit buffer size",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Lifetime = 0
	cfg.Security.RateLimitMax = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "session lifetime") || !strings.Contains(err.Error(), "rate limit max") {
		t.Fatalf("expected both violations reported, got %v", err)
	}
}

func TestValidate_AuditDisabledSkipsBufferCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = false
	cfg.Audit.BufferSize = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled audit should not require a buffer: %v", err)
	}
}
