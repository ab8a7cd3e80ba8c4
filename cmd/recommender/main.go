// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package main is the entry point of the recommendation service.
//
// The service keeps the product catalog vectorized in memory, fetches user
// histories from the user-data service and ranks products by content
// similarity, falling back to popularity for users without history.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Shared cache (Redis, one logical database per namespace)
//  3. User-data client behind a circuit breaker
//  4. Compute pool, catalog store and engine
//  5. Supervisor tree: compute pool, catalog refresh or file watch, HTTP server
//
// Catalog source:
//
//	RECOMMEND_CATALOG_SOURCE=upstream   # poll GET /internal/catalog (default)
//	RECOMMEND_CATALOG_SOURCE=file RECOMMEND_CATALOG_PATH=/data/catalog.json
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/shelfwise/internal/api"
	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/config"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/recommend"
	"github.com/tomtom215/shelfwise/internal/recommend/algorithms"
	"github.com/tomtom215/shelfwise/internal/supervisor"
	"github.com/tomtom215/shelfwise/internal/supervisor/services"
	"github.com/tomtom215/shelfwise/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Recommendation service failed")
		os.Exit(1)
	}
	logging.Info().Msg("Recommendation service stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.SetLogger(logging.WithService("recommender"))
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("catalog_source", cfg.Recommend.CatalogSource).
		Str("userdata_url", cfg.Recommend.UserDataURL).
		Msg("Starting recommendation service")

	mediator, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer func() {
		if err := mediator.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	userData := upstream.NewUserDataClient(cfg.Recommend.UserDataURL, cfg.Recommend.UpstreamTimeout,
		upstream.DefaultBreakerConfig())

	pool := recommend.NewPool(cfg.Recommend.Workers, cfg.Recommend.QueueDepth)
	builder := algorithms.NewTermVectorizer()
	catalog := recommend.NewCatalogStore(builder, mediator, pool, cfg.Cache.CatalogTTL)

	engine, err := recommend.NewEngine(recommend.EngineConfig{
		DefaultK:          cfg.Recommend.DefaultK,
		MaxK:              cfg.Recommend.MaxK,
		UserVectorTTL:     cfg.Cache.UserVectorTTL,
		RecommendationTTL: cfg.Cache.RecommendationTTL,
		ComputeTimeout:    cfg.Recommend.ComputeTimeout,
	}, recommend.EngineDeps{
		Catalog: catalog,
		History: userData,
		Builder: builder,
		Ranker:  algorithms.NewCosineRanker(),
		Cache:   mediator,
		Pool:    pool,
	})
	if err != nil {
		return fmt.Errorf("create recommendation engine: %w", err)
	}

	tree, err := supervisor.NewSupervisorTree("recommender", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddBackgroundService(pool)

	// The manual reload endpoint uses the same source as the background loader.
	var source recommend.CatalogSource = userData
	if cfg.Recommend.CatalogSource == config.CatalogSourceFile {
		source = recommend.FileCatalogSource{Path: cfg.Recommend.CatalogPath}
		tree.AddBackgroundService(services.NewCatalogWatchService(catalog, cfg.Recommend.CatalogPath, 0))
	} else {
		tree.AddBackgroundService(services.NewCatalogRefreshService(catalog, userData, services.CatalogRefreshConfig{
			Interval: cfg.Recommend.CatalogRefreshInterval,
		}))
	}

	health := api.NewHealthHandler("recommender", map[string]api.HealthCheck{
		"userdata": api.BreakerCheck(userData),
		"catalog": func(context.Context) error {
			if _, ok := catalog.Info(); !ok {
				return recommend.ErrEmptyCatalog
			}
			return nil
		},
	})
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security))
	router := api.NewRecommenderRouter(api.NewRecommenderHandler(engine, catalog, source), health, mw)
	tree.AddHTTPServer("recommender-http", cfg.Server, router)

	return tree.Run(context.Background())
}
