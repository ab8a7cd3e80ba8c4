// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/metrics"
)

// DefaultOpTimeout bounds a single backend call when none is configured.
const DefaultOpTimeout = 250 * time.Millisecond

// ErrUnknownNamespace is returned when no backend is bound to a namespace.
var ErrUnknownNamespace = errors.New("cache: unknown namespace")

// Mediator wraps expensive operations with get-or-compute caching.
//
// Backend failures never reach callers of GetOrCompute: the mediator logs,
// counts the failure and computes the value directly (bypass mode).
type Mediator struct {
	backends  map[Namespace]Backend
	opTimeout time.Duration
	flights   singleflight.Group
}

// NewMediator binds each namespace to its backend. Every backend call is
// bounded by opTimeout.
func NewMediator(backends map[Namespace]Backend, opTimeout time.Duration) *Mediator {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	bound := make(map[Namespace]Backend, len(backends))
	for ns, b := range backends {
		bound[ns] = b
	}
	return &Mediator{backends: bound, opTimeout: opTimeout}
}

// Close closes every distinct backend.
func (m *Mediator) Close() error {
	seen := make(map[Backend]struct{}, len(m.backends))
	var errs []error
	for _, b := range m.backends {
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flightResult is what one in-flight computation hands to its waiters.
type flightResult struct {
	raw []byte
}

// GetOrCompute returns the value cached under key, or runs compute, stores
// its result for ttl and returns it.
//
// Concurrent misses for the same key within the process share one compute
// call. Every caller decodes its own copy from the same encoded bytes, so a
// hit and the original miss yield identical values. compute runs detached
// from the caller's cancellation so that one disconnecting client does not
// fail the others waiting on the same key; compute must bound itself.
// Errors from compute are returned as-is and never cached.
func GetOrCompute[T any](
	ctx context.Context,
	m *Mediator,
	ns Namespace,
	key string,
	ttl time.Duration,
	compute func(context.Context) (T, error),
) (T, error) {
	var zero T

	backend, ok := m.backends[ns]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}

	raw, hit, failed := m.get(ctx, ns, backend, key)
	if hit {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheRequests.WithLabelValues(string(ns), "hit").Inc()
			return v, nil
		}
		logging.Ctx(ctx).Warn().Str("component", "cache").Str("key", key).
			Msg("Discarding undecodable cache entry")
	}

	recheck := !failed && !hit
	leader := false
	ch := m.flights.DoChan(string(ns)+"|"+key, func() (any, error) {
		leader = true
		flightCtx := context.WithoutCancel(ctx)

		if recheck {
			if raw, hit, _ := m.get(flightCtx, ns, backend, key); hit && json.Valid(raw) {
				metrics.CacheRequests.WithLabelValues(string(ns), "hit").Inc()
				return flightResult{raw: raw}, nil
			}
		}
		if !failed {
			metrics.CacheRequests.WithLabelValues(string(ns), "miss").Inc()
		}

		start := time.Now()
		v, err := compute(flightCtx)
		metrics.CacheComputeDuration.WithLabelValues(string(ns)).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache: encode %s: %w", key, err)
		}
		m.set(flightCtx, ns, backend, key, encoded, ttl)
		return flightResult{raw: encoded}, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if !leader {
			metrics.CacheSharedWaits.WithLabelValues(string(ns)).Inc()
		}

		fr, _ := res.Val.(flightResult)
		var v T
		if err := json.Unmarshal(fr.raw, &v); err != nil {
			return zero, fmt.Errorf("cache: decode %s: %w", key, err)
		}
		return v, nil
	}
}

// Peek returns the cached value without computing on a miss. Backend
// failures read as a miss.
func Peek[T any](ctx context.Context, m *Mediator, ns Namespace, key string) (T, bool) {
	var zero T

	backend, ok := m.backends[ns]
	if !ok {
		return zero, false
	}
	raw, hit, _ := m.get(ctx, ns, backend, key)
	if !hit {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Store writes value under key for ttl, replacing any previous value.
// Only encoding errors are returned; backend failures are logged and counted.
func Store[T any](ctx context.Context, m *Mediator, ns Namespace, key string, value T, ttl time.Duration) error {
	backend, ok := m.backends[ns]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	m.set(ctx, ns, backend, key, encoded, ttl)
	return nil
}

// Invalidate removes one exact key.
func (m *Mediator) Invalidate(ctx context.Context, ns Namespace, key string) error {
	backend, ok := m.backends[ns]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	n, err := backend.Delete(opCtx, key)
	return m.finishDelete(ctx, ns, key, n, err)
}

// InvalidatePrefix removes every key starting with prefix, e.g. the
// "recommendation:42:" entries of one user across versions and k values.
func (m *Mediator) InvalidatePrefix(ctx context.Context, ns Namespace, prefix string) (int, error) {
	return m.InvalidateMatch(ctx, ns, escapeGlob(prefix)+"*")
}

// InvalidateMatch removes every key matching a glob pattern.
func (m *Mediator) InvalidateMatch(ctx context.Context, ns Namespace, pattern string) (int, error) {
	backend, ok := m.backends[ns]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}

	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	n, err := backend.DeleteMatch(opCtx, pattern)
	return n, m.finishDelete(ctx, ns, pattern, n, err)
}

func (m *Mediator) finishDelete(ctx context.Context, ns Namespace, target string, n int, err error) error {
	if n > 0 {
		metrics.CacheInvalidatedKeys.WithLabelValues(string(ns)).Add(float64(n))
	}
	if err != nil {
		m.backendFailure(ctx, ns, "delete", target, err)
		return fmt.Errorf("cache: invalidate %s: %w", target, err)
	}
	logging.Ctx(ctx).Debug().Str("component", "cache").Str("namespace", string(ns)).
		Str("target", target).Int("removed", n).Msg("Cache invalidated")
	return nil
}

// get reads key under the op timeout. failed reports a backend error.
func (m *Mediator) get(ctx context.Context, ns Namespace, backend Backend, key string) (raw []byte, hit, failed bool) {
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	raw, hit, err := backend.Get(opCtx, key)
	if err != nil {
		m.backendFailure(ctx, ns, "get", key, err)
		return nil, false, true
	}
	return raw, hit, false
}

func (m *Mediator) set(ctx context.Context, ns Namespace, backend Backend, key string, raw []byte, ttl time.Duration) {
	opCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	if err := backend.Set(opCtx, key, raw, ttl); err != nil {
		m.backendFailure(ctx, ns, "set", key, err)
	}
}

func (m *Mediator) backendFailure(ctx context.Context, ns Namespace, op, key string, err error) {
	metrics.RecordCacheBypass(string(ns), op)
	logging.Ctx(ctx).Warn().Err(err).
		Str("component", "cache").
		Str("namespace", string(ns)).
		Str("operation", op).
		Str("key", key).
		Msg("Cache backend unavailable, bypassing")
}
