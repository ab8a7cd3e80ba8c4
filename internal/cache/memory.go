// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/tomtom215/shelfwise/internal/metrics"
)

// memoryEntry is a cached value with its expiry.
type memoryEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

// Stats tracks backend activity.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// MemoryBackend is a process-local Backend with TTL expiry. It backs tests
// and single-process deployments where no Redis is available.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryBackend creates a backend whose expired entries are swept every
// cleanupInterval (5 minutes when zero). Close stops the sweeper.
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}
	go b.cleanupLoop(cleanupInterval)
	return b
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	entry, exists := b.entries[key]
	b.mu.RUnlock()

	if !exists {
		b.record(func(s *Stats) { s.Misses++ })
		return nil, false, nil
	}

	if time.Now().After(entry.ExpiresAt) {
		b.mu.Lock()
		if current, ok := b.entries[key]; ok && current.ExpiresAt.Equal(entry.ExpiresAt) {
			delete(b.entries, key)
		}
		b.mu.Unlock()
		b.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		return nil, false, nil
	}

	b.record(func(s *Stats) { s.Hits++ })
	out := make([]byte, len(entry.Data))
	copy(out, entry.Data)
	return out, true, nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	b.mu.Lock()
	b.entries[key] = memoryEntry{Data: data, ExpiresAt: time.Now().Add(ttl)}
	total := int64(len(b.entries))
	b.mu.Unlock()

	b.record(func(s *Stats) { s.TotalKeys = total })
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(_ context.Context, keys ...string) (int, error) {
	b.mu.Lock()
	removed := 0
	for _, key := range keys {
		if _, ok := b.entries[key]; ok {
			delete(b.entries, key)
			removed++
		}
	}
	total := int64(len(b.entries))
	b.mu.Unlock()

	b.record(func(s *Stats) { s.Evictions += int64(removed); s.TotalKeys = total })
	return removed, nil
}

// DeleteMatch implements Backend using path.Match glob semantics.
func (b *MemoryBackend) DeleteMatch(_ context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	b.mu.Lock()
	removed := 0
	for key := range b.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(b.entries, key)
			removed++
		}
	}
	total := int64(len(b.entries))
	b.mu.Unlock()

	b.record(func(s *Stats) { s.Evictions += int64(removed); s.TotalKeys = total })
	return removed, nil
}

// Close stops the cleanup loop. Entries remain readable.
func (b *MemoryBackend) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	return nil
}

// Len returns the number of stored entries, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// GetStats returns a snapshot of backend statistics.
func (b *MemoryBackend) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// HitRate returns the hit rate as a percentage.
func (b *MemoryBackend) HitRate() float64 {
	stats := b.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// publishStats exports the entry count and hit rate.
func (b *MemoryBackend) publishStats() {
	metrics.CacheMemoryEntries.Set(float64(b.GetStats().TotalKeys))
	metrics.CacheMemoryHitRate.Set(b.HitRate())
}

func (b *MemoryBackend) record(update func(*Stats)) {
	b.mu.Lock()
	update(&b.stats)
	b.mu.Unlock()
}

func (b *MemoryBackend) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.cleanup()
			b.publishStats()
		case <-b.stop:
			return
		}
	}
}

// cleanup removes all expired entries.
func (b *MemoryBackend) cleanup() {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, entry := range b.entries {
		if now.After(entry.ExpiresAt) {
			delete(b.entries, key)
			b.stats.Evictions++
		}
	}
	b.stats.TotalKeys = int64(len(b.entries))
	b.stats.LastCleanup = now
}
