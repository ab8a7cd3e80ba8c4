// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package main is the entry point of the public API gateway.
//
// The gateway authenticates clients by API key, serves recommendations from
// the shared cache and forwards misses to the recommendation service. When
// the recommendation service is unavailable it answers with the last good
// response for the user, marked with X-Cache-Status: stale.
//
// Required configuration:
//
//	API_KEYS=key-one-at-least-16,key-two-at-least-16
//	RECOMMENDATION_SERVICE_URL=http://recommender:8082
//	CACHE_REDIS_ADDR=redis:6379
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/shelfwise/internal/api"
	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/config"
	"github.com/tomtom215/shelfwise/internal/gateway"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/supervisor"
	"github.com/tomtom215/shelfwise/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Gateway failed")
		os.Exit(1)
	}
	logging.Info().Msg("Gateway stopped")
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
	logging.SetLogger(logging.WithService("gateway"))
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("recommend_url", cfg.Gateway.RecommendURL).
		Int("api_keys", len(cfg.Gateway.APIKeys)).
		Msg("Starting gateway")

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED on the public API")
	}

	mediator, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer func() {
		if err := mediator.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	recommender := upstream.NewRecommendClient(cfg.Gateway.RecommendURL, cfg.Gateway.UpstreamTimeout,
		upstream.DefaultBreakerConfig())

	router, err := gateway.NewRouter(gateway.Config{
		APIKeys:  cfg.Gateway.APIKeys,
		FreshTTL: cfg.Cache.GatewayTTL,
		StaleTTL: cfg.Cache.GatewayStaleTTL,
	}, recommender, mediator)
	if err != nil {
		return fmt.Errorf("create gateway router: %w", err)
	}

	tree, err := supervisor.NewSupervisorTree("gateway", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	health := api.NewHealthHandler("gateway", map[string]api.HealthCheck{
		"recommender": api.BreakerCheck(recommender),
	})
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security))
	handler := api.NewGatewayHandler(router, cfg.Gateway.DefaultK, cfg.Gateway.MaxK)
	tree.AddHTTPServer("gateway-http", cfg.Server, api.NewGatewayRouter(handler, health, mw))

	return tree.Run(context.Background())
}
