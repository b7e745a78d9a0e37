package sppgcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gizihub/sppgcore/audit"
	"github.com/gizihub/sppgcore/cache"
	"github.com/gizihub/sppgcore/metrics"
	"github.com/gizihub/sppgcore/realtime"
	"github.com/gizihub/sppgcore/session"
)

func newTestCore(t *testing.T) (*Core, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	core, err := New().WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return core, func() {
		core.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func TestBuild_RequiresRedis(t *testing.T) {
	_, err := New().Build()
	if !errors.Is(err, ErrRedisRequired) {
		t.Fatalf("expected ErrRedisRequired, got %v", err)
	}
}

func TestBuild_IsSingleUse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := New().WithRedis(rdb)
	core, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer core.Close()

	if _, err := b.Build(); !errors.Is(err, ErrAlreadyBuilt) {
		t.Fatalf("expected ErrAlreadyBuilt, got %v", err)
	}
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := DefaultConfig()
	cfg.Session.Lifetime = 0

	_, err = New().WithRedis(rdb).WithConfig(cfg).Build()
	if err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestCore_SessionLifecycle(t *testing.T) {
	core, done := newTestCore(t)
	defer done()

	ctx := context.Background()
	rec := core.Sessions.Create(ctx, session.CreateInput{
		UserID:      "u1",
		Role:        "sppg_admin",
		TenantID:    "tenant-1",
		UserType:    session.UserTypeTenant,
		Permissions: []string{"menus:read"},
	})
	if rec == nil {
		t.Fatal("Create returned nil")
	}

	if core.Sessions.Get(ctx, rec.SessionID) == nil {
		t.Fatal("session not retrievable after create")
	}

	second := core.Sessions.Create(ctx, session.CreateInput{UserID: "u1", UserType: session.UserTypeTenant})
	if second == nil {
		t.Fatal("second Create returned nil")
	}

	if !core.Sessions.DestroyAllForUser(ctx, "u1") {
		t.Fatal("DestroyAllForUser returned false")
	}
	if got := core.Sessions.UserSessions(ctx, "u1"); len(got) != 0 {
		t.Fatalf("expected no sessions after bulk revoke, got %d", len(got))
	}

	snap := core.MetricsSnapshot()
	if snap.Counters[metrics.MetricSessionCreated] != 2 {
		t.Fatalf("expected 2 created sessions in metrics, got %d", snap.Counters[metrics.MetricSessionCreated])
	}
}

func TestCore_PublishInvalidatesCache(t *testing.T) {
	core, done := newTestCore(t)
	defer done()

	ctx := context.Background()
	type menuList struct {
		Names []string `json:"names"`
	}

	if !core.Cache.SetMenus(ctx, "tenant-1", menuList{Names: []string{"nasi"}}) {
		t.Fatal("SetMenus returned false")
	}
	var out menuList
	if !core.Cache.GetMenus(ctx, "tenant-1", &out) {
		t.Fatal("GetMenus returned false after SetMenus")
	}

	ch, cancel := core.Realtime.Subscribe("tenant-1")
	defer cancel()

	core.Realtime.Publish(ctx, realtime.Event{
		Type:     realtime.EventDataChanged,
		TenantID: "tenant-1",
		Tag:      cache.TagMenus,
	})

	select {
	case ev := <-ch:
		if ev.Tag != cache.TagMenus {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for realtime event")
	}

	if core.Cache.GetMenus(ctx, "tenant-1", &out) {
		t.Fatal("cached menus survived the data-change publish")
	}
}

func TestCore_AuditFlowsThroughDispatcher(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sink := audit.NewChannelSink(16)
	core, err := New().WithRedis(rdb).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer core.Close()

	ctx := context.Background()
	core.Sessions.Create(ctx, session.CreateInput{UserID: "u1", UserType: session.UserTypeTenant})
	core.Sessions.DestroyAllForUser(ctx, "u1")

	select {
	case ev := <-sink.Events():
		if ev.Action != "session.revoke_all" || ev.UserID != "u1" {
			t.Fatalf("unexpected audit event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for audit event")
	}

	if core.AuditDropped() != 0 {
		t.Fatalf("expected no dropped audit events, got %d", core.AuditDropped())
	}
}

func TestCore_MetricsCanBeDisabled(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	core, err := New().WithRedis(rdb).WithMetricsEnabled(false).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer core.Close()

	core.Sessions.Create(context.Background(), session.CreateInput{UserID: "u1", UserType: session.UserTypeTenant})
	if len(core.MetricsSnapshot().Counters) != 0 {
		t.Fatal("disabled metrics still recorded counters")
	}
	if core.Metrics().Enabled() {
		t.Fatal("Metrics should report disabled")
	}
}
