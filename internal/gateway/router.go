// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package gateway is the public front door: it authenticates callers, caches
// recommendation responses briefly and serves the last good response when the
// recommendation service is unavailable.
package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/metrics"
	"github.com/tomtom215/shelfwise/internal/recommend"
)

// ErrUnauthorized is returned for a missing or unknown API key.
var ErrUnauthorized = errors.New("gateway: missing or unknown API key")

// Recommender fetches a fresh ranking from the recommendation service.
type Recommender interface {
	Recommend(ctx context.Context, userID, k int) (*recommend.Result, error)
}

// Config holds the gateway's keys and cache lifetimes.
type Config struct {
	APIKeys  []string
	FreshTTL time.Duration
	StaleTTL time.Duration
}

// Response is a recommendation as served to clients. Stale marks a
// last-good copy served while the recommendation service is unavailable.
type Response struct {
	Result *recommend.Result
	Stale  bool
}

// Router authenticates and routes recommendation requests.
type Router struct {
	keys     [][]byte
	upstream Recommender
	cache    *cache.Mediator
	freshTTL time.Duration
	staleTTL time.Duration
}

// NewRouter creates a Router. At least one API key is required.
func NewRouter(cfg Config, upstream Recommender, mediator *cache.Mediator) (*Router, error) {
	if upstream == nil || mediator == nil {
		return nil, errors.New("gateway: upstream and cache are required")
	}
	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("gateway: at least one API key is required")
	}
	if cfg.FreshTTL <= 0 || cfg.StaleTTL <= 0 {
		return nil, fmt.Errorf("gateway: invalid ttl fresh=%s stale=%s", cfg.FreshTTL, cfg.StaleTTL)
	}
	return &Router{
		keys:     keys,
		upstream: upstream,
		cache:    mediator,
		freshTTL: cfg.FreshTTL,
		staleTTL: cfg.StaleTTL,
	}, nil
}

// Authorized reports whether apiKey is one of the configured keys. Every
// key is compared so the time taken does not depend on which one matched.
func (r *Router) Authorized(apiKey string) bool {
	if apiKey == "" {
		return false
	}
	candidate := []byte(apiKey)
	match := 0
	for _, k := range r.keys {
		match |= subtle.ConstantTimeCompare(candidate, k)
	}
	return match == 1
}

// Authenticate returns ErrUnauthorized unless apiKey is configured.
func (r *Router) Authenticate(apiKey string) error {
	if !r.Authorized(apiKey) {
		metrics.GatewayAuthFailures.Inc()
		return ErrUnauthorized
	}
	return nil
}

// HandleRecommend returns the top k products for userID.
//
// Fresh responses are cached for the fresh TTL; each successful upstream call
// also refreshes a last-good copy that is served, marked stale, when the
// recommendation service is unavailable. Nothing is cached on error.
func (r *Router) HandleRecommend(ctx context.Context, userID int, apiKey string, k int) (*Response, error) {
	if err := r.Authenticate(apiKey); err != nil {
		return nil, err
	}

	freshKey := cache.Key(cache.NamespaceGateway, userID, k)
	staleKey := cache.Key(cache.NamespaceGateway, "stale", userID, k)

	var fetched atomic.Bool
	res, err := cache.GetOrCompute(ctx, r.cache, cache.NamespaceGateway, freshKey, r.freshTTL,
		func(ctx context.Context) (*recommend.Result, error) {
			res, err := r.upstream.Recommend(ctx, userID, k)
			if err != nil {
				return nil, err
			}
			fetched.Store(true)
			if err := cache.Store(ctx, r.cache, cache.NamespaceGateway, staleKey, res, r.staleTTL); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Int("user_id", userID).Msg("Failed to store last-good response")
			}
			return res, nil
		})

	switch {
	case err == nil:
		source := "cache"
		if fetched.Load() {
			source = "upstream"
		}
		metrics.GatewayResponses.WithLabelValues(source).Inc()
		return &Response{Result: res}, nil

	case errors.Is(err, recommend.ErrUserNotFound), errors.Is(err, context.Canceled):
		return nil, err

	case errors.Is(err, recommend.ErrUpstreamUnavailable):
		if stale, ok := cache.Peek[*recommend.Result](ctx, r.cache, cache.NamespaceGateway, staleKey); ok && stale != nil {
			metrics.GatewayResponses.WithLabelValues("stale").Inc()
			logging.Ctx(ctx).Warn().Err(err).Int("user_id", userID).Int("k", k).
				Msg("Recommendation service unavailable, serving stale response")
			return &Response{Result: stale, Stale: true}, nil
		}
		return nil, err

	default:
		logging.Ctx(ctx).Error().Err(err).Int("user_id", userID).Int("k", k).
			Msg("Recommendation request failed")
		return nil, fmt.Errorf("gateway: recommend user %d: %w", userID, err)
	}
}
