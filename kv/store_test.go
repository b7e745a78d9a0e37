package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(rdb)

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestGetSet_RoundTrip(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("expected v, got %q", got)
	}
}

func TestGet_MissingReturnsNotFound(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSet_TTLApplied(t *testing.T) {
	store, mr, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "k")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestList_PushTrimRange(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.LPush(ctx, "list", []byte{byte('a' + i)}); err != nil {
			t.Fatalf("LPush failed: %v", err)
		}
	}
	if err := store.LTrim(ctx, "list", 0, 2); err != nil {
		t.Fatalf("LTrim failed: %v", err)
	}

	items, err := store.LRange(ctx, "list", 0, -1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items after trim, got %d", len(items))
	}
	if string(items[0]) != "e" {
		t.Fatalf("expected most-recent-first order, got %q", items[0])
	}
}

func TestSet_AddMembersRemove(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	if err := store.SAdd(ctx, "set", "a", "b"); err != nil {
		t.Fatalf("SAdd failed: %v", err)
	}

	members, err := store.SMembers(ctx, "set")
	if err != nil {
		t.Fatalf("SMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	if err := store.SRem(ctx, "set", "a"); err != nil {
		t.Fatalf("SRem failed: %v", err)
	}
	n, err := store.SCard(ctx, "set")
	if err != nil {
		t.Fatalf("SCard failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 member after SRem, got %d", n)
	}
}

func TestScan_MatchesPattern(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	for _, k := range []string{"cache:t1:a", "cache:t1:b", "cache:t2:a"} {
		if err := store.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := store.Scan(ctx, "cache:t1:*")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
}

func TestExistsAndTTL(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ok, err := store.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected key to exist, got %v / %v", ok, err)
	}
	ok, err = store.Exists(ctx, "absent")
	if err != nil || ok {
		t.Fatalf("expected key to be absent, got %v / %v", ok, err)
	}

	ttl, err := store.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != time.Minute {
		t.Fatalf("expected 1m TTL, got %v", ttl)
	}

	if err := store.Expire(ctx, "k", time.Hour); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if ttl, _ := store.TTL(ctx, "k"); ttl != time.Hour {
		t.Fatalf("expected 1h TTL after Expire, got %v", ttl)
	}
}

func TestDBSize_CountsKeys(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	n, err := store.DBSize(ctx)
	if err != nil {
		t.Fatalf("DBSize failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 keys, got %d", n)
	}
}

func TestPing_ReportsLatency(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	latency, err := store.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if latency < 0 {
		t.Fatalf("expected nonnegative latency, got %v", latency)
	}
}

func TestUnavailable_WrapsError(t *testing.T) {
	store, mr, done := newTestStore(t)
	defer done()

	mr.Close()

	_, err := store.Get(context.Background(), "k")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
