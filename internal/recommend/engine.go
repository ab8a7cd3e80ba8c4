// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/metrics"
)

// EngineConfig holds the orchestration knobs of Engine.
type EngineConfig struct {
	// DefaultK replaces a non-positive k.
	DefaultK int

	// MaxK caps k.
	MaxK int

	// UserVectorTTL is the lifetime of "user:<id>:<version>" entries.
	UserVectorTTL time.Duration

	// RecommendationTTL is the lifetime of "recommendation:<id>:<version>:<k>" entries.
	RecommendationTTL time.Duration

	// ComputeTimeout bounds one user-vector or ranking computation.
	ComputeTimeout time.Duration
}

// DefaultEngineConfig returns the defaults used when fields are zero.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultK:          10,
		MaxK:              100,
		UserVectorTTL:     time.Hour,
		RecommendationTTL: time.Hour,
		ComputeTimeout:    5 * time.Second,
	}
}

// Engine produces recommendations for one user at a time. It is safe for
// concurrent use.
type Engine struct {
	config  EngineConfig
	catalog *CatalogStore
	history HistorySource
	builder FeatureBuilder
	ranker  Ranker
	cache   *cache.Mediator
	pool    *Pool
	logger  zerolog.Logger
}

// EngineDeps groups the collaborators of Engine.
type EngineDeps struct {
	Catalog *CatalogStore
	History HistorySource
	Builder FeatureBuilder
	Ranker  Ranker
	Cache   *cache.Mediator
	Pool    *Pool
}

// NewEngine wires an Engine. Zero config fields take their defaults.
func NewEngine(cfg EngineConfig, deps EngineDeps) (*Engine, error) {
	if deps.Catalog == nil || deps.History == nil || deps.Builder == nil || deps.Ranker == nil || deps.Cache == nil {
		return nil, errors.New("recommend: engine requires catalog, history, builder, ranker and cache")
	}

	def := DefaultEngineConfig()
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = def.DefaultK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = def.MaxK
	}
	if cfg.DefaultK > cfg.MaxK {
		return nil, fmt.Errorf("recommend: default k %d exceeds max k %d", cfg.DefaultK, cfg.MaxK)
	}
	if cfg.UserVectorTTL <= 0 {
		cfg.UserVectorTTL = def.UserVectorTTL
	}
	if cfg.RecommendationTTL <= 0 {
		cfg.RecommendationTTL = def.RecommendationTTL
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = def.ComputeTimeout
	}

	return &Engine{
		config:  cfg,
		catalog: deps.Catalog,
		history: deps.History,
		builder: deps.Builder,
		ranker:  deps.Ranker,
		cache:   deps.Cache,
		pool:    deps.Pool,
		logger:  logging.WithComponent("recommend"),
	}, nil
}

// ClampK applies the default and the maximum to a requested k.
func (e *Engine) ClampK(k int) int {
	if k <= 0 {
		return e.config.DefaultK
	}
	if k > e.config.MaxK {
		return e.config.MaxK
	}
	return k
}

// Limits returns the default and maximum k.
func (e *Engine) Limits() (defaultK, maxK int) {
	return e.config.DefaultK, e.config.MaxK
}

// Recommend returns up to k products for userID, excluding products the
// user already interacted with.
//
// The user vector and the ranking are cached per catalog version, so a
// catalog reload or a history change (which invalidates the user's keys)
// is reflected on the next call.
func (e *Engine) Recommend(ctx context.Context, userID, k int) (*Result, error) {
	start := time.Now()
	k = e.ClampK(k)

	res, err := e.recommend(ctx, userID, k)

	strategy := "none"
	outcome := "success"
	if err != nil {
		outcome = outcomeOf(err)
	} else {
		strategy = string(res.Strategy)
	}
	metrics.RecordRecommendation(strategy, outcome, time.Since(start))

	logger := logging.Ctx(ctx)
	if err != nil {
		logger.Debug().Err(err).Int("user_id", userID).Int("k", k).Msg("Recommendation failed")
		return nil, err
	}
	logger.Debug().
		Int("user_id", userID).
		Int("k", k).
		Int64("catalog_version", res.CatalogVersion).
		Str("strategy", string(res.Strategy)).
		Int("returned", len(res.Items)).
		Dur("latency", time.Since(start)).
		Msg("Recommendation complete")
	return res, nil
}

func (e *Engine) recommend(ctx context.Context, userID, k int) (*Result, error) {
	vecs, err := e.catalog.Vectors(ctx)
	if err != nil {
		return nil, err
	}

	history, err := e.history.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	userVec, err := cache.GetOrCompute(ctx, e.cache, cache.NamespaceUser,
		cache.Key(cache.NamespaceUser, userID, vecs.Version), e.config.UserVectorTTL,
		func(ctx context.Context) (Vector, error) {
			return compute(ctx, e, "user_vector", func() (Vector, error) {
				return e.builder.BuildUserVector(history, vecs.Vectors)
			})
		})
	if err != nil {
		return nil, err
	}

	return cache.GetOrCompute(ctx, e.cache, cache.NamespaceRecommendation,
		cache.Key(cache.NamespaceRecommendation, userID, vecs.Version, k), e.config.RecommendationTTL,
		func(ctx context.Context) (*Result, error) {
			ranking, err := compute(ctx, e, "rank", func() (Ranking, error) {
				return e.ranker.Rank(userVec, vecs, excludeSet(history), k)
			})
			if err != nil {
				return nil, err
			}
			return &Result{
				UserID:         userID,
				CatalogVersion: vecs.Version,
				Items:          ranking.Items,
				Strategy:       ranking.Strategy,
				ComputedAt:     time.Now().UTC(),
			}, nil
		})
}

// compute runs fn on the pool under the compute timeout.
func compute[T any](ctx context.Context, e *Engine, task string, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.ComputeTimeout)
	defer cancel()
	return Run(ctx, e.pool, task, func(context.Context) (T, error) { return fn() })
}

func excludeSet(history []Interaction) map[int]struct{} {
	exclude := make(map[int]struct{}, len(history))
	for _, h := range history {
		exclude[h.ProductID] = struct{}{}
	}
	return exclude
}

// outcomeOf labels a failed call for metrics.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrOverloaded):
		return "overloaded"
	case errors.Is(err, ErrEmptyCatalog):
		return "empty_catalog"
	case errors.Is(err, ErrInvalidDimension):
		return "invalid_dimension"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
