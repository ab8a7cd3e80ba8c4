// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/shelfwise/internal/metrics"
)

func TestMemoryBackendBasicOperations(t *testing.T) {
	b := NewMemoryBackend(time.Minute)
	defer b.Close()
	ctx := context.Background()

	if err := b.Set(ctx, "user:1:history", []byte(`[1]`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, hit, err := b.Get(ctx, "user:1:history")
	if err != nil || !hit {
		t.Fatalf("Get = (%v, %v), want hit", hit, err)
	}
	if string(value) != `[1]` {
		t.Errorf("value = %s, want [1]", value)
	}

	if _, hit, _ := b.Get(ctx, "user:2:history"); hit {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryBackendExpiration(t *testing.T) {
	b := NewMemoryBackend(time.Minute)
	defer b.Close()
	ctx := context.Background()

	_ = b.Set(ctx, "gateway:1:10", []byte(`"v"`), 50*time.Millisecond)
	if _, hit, _ := b.Get(ctx, "gateway:1:10"); !hit {
		t.Fatal("expected hit immediately after set")
	}

	time.Sleep(80 * time.Millisecond)

	if _, hit, _ := b.Get(ctx, "gateway:1:10"); hit {
		t.Error("expected entry to be expired")
	}
	if stats := b.GetStats(); stats.Evictions == 0 {
		t.Error("expected expired read to count an eviction")
	}
}

func TestMemoryBackendReturnsCopies(t *testing.T) {
	b := NewMemoryBackend(time.Minute)
	defer b.Close()
	ctx := context.Background()

	src := []byte("abc")
	_ = b.Set(ctx, "k", src, time.Minute)
	src[0] = 'z'

	got, _, _ := b.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value changed through caller slice: %s", got)
	}
	got[1] = 'z'
	again, _, _ := b.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value changed through returned slice: %s", again)
	}
}

func TestMemoryBackendDeleteMatch(t *testing.T) {
	b := NewMemoryBackend(time.Minute)
	defer b.Close()
	ctx := context.Background()

	for _, k := range []string{"recommendation:1:7:10", "recommendation:1:8:10", "recommendation:12:7:10", "weird*key"} {
		_ = b.Set(ctx, k, []byte("1"), time.Minute)
	}

	n, err := b.DeleteMatch(ctx, escapeGlob("recommendation:1:")+"*")
	if err != nil {
		t.Fatalf("DeleteMatch: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}

	n, _ = b.DeleteMatch(ctx, escapeGlob("weird*")+"*")
	if n != 1 {
		t.Errorf("escaped literal match removed %d, want 1", n)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}

	if _, err := b.DeleteMatch(ctx, "["); err == nil {
		t.Error("expected malformed pattern error")
	}
}

func TestMemoryBackendDelete(t *testing.T) {
	b := NewMemoryBackend(time.Minute)
	defer b.Close()
	ctx := context.Background()

	_ = b.Set(ctx, "a", []byte("1"), time.Minute)
	_ = b.Set(ctx, "b", []byte("1"), time.Minute)

	n, err := b.Delete(ctx, "a", "missing")
	if err != nil || n != 1 {
		t.Errorf("Delete = (%d, %v), want (1, nil)", n, err)
	}
}

func TestMemoryBackendCleanup(t *testing.T) {
	b := NewMemoryBackend(20 * time.Millisecond)
	defer b.Close()

	_ = b.Set(context.Background(), "short", []byte("1"), 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	if b.Len() != 0 {
		t.Errorf("cleanup loop left %d entries", b.Len())
	}
}

func TestMemoryBackendHitRate(t *testing.T) {
	b := NewMemoryBackend(time.Minute)
	defer b.Close()
	ctx := context.Background()

	if b.HitRate() != 0 {
		t.Error("empty backend hit rate should be 0")
	}
	_ = b.Set(ctx, "k", []byte("1"), time.Minute)
	_, _, _ = b.Get(ctx, "k")
	_, _, _ = b.Get(ctx, "missing")

	if rate := b.HitRate(); rate != 50 {
		t.Errorf("HitRate() = %v, want 50", rate)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestMemoryBackendPublishStats(t *testing.T) {
	b := NewMemoryBackend(time.Minute)
	defer b.Close()
	ctx := context.Background()

	_ = b.Set(ctx, "user:1:history", []byte("1"), time.Minute)
	_ = b.Set(ctx, "user:2:history", []byte("2"), time.Minute)
	_, _, _ = b.Get(ctx, "user:1:history")
	_, _, _ = b.Get(ctx, "user:1:history")
	_, _, _ = b.Get(ctx, "user:1:history")
	_, _, _ = b.Get(ctx, "user:3:history")

	b.publishStats()

	if got := testutil.ToFloat64(metrics.CacheMemoryEntries); got != 2 {
		t.Errorf("cache_memory_entries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.CacheMemoryHitRate); got != 75 {
		t.Errorf("cache_memory_hit_rate_percent = %v, want 75", got)
	}
}
