// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package main is the entry point of the user-data service.
//
// The service owns user profiles, interaction histories and the product
// catalog in an embedded BadgerDB store. Recording an interaction drops
// every cached entry derived from that user's history.
//
//	USERDATA_DATA_DIR=/data/userdata    # badger directory
//	USERDATA_IN_MEMORY=true             # ephemeral store for development
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/shelfwise/internal/api"
	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/config"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/supervisor"
	"github.com/tomtom215/shelfwise/internal/supervisor/services"
	"github.com/tomtom215/shelfwise/internal/userdata"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("User-data service failed")
		os.Exit(1)
	}
	logging.Info().Msg("User-data service stopped")
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
	logging.SetLogger(logging.WithService("userdata"))
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("data_dir", cfg.UserData.DataDir).
		Bool("in_memory", cfg.UserData.InMemory).
		Msg("Starting user-data service")

	if cfg.UserData.InMemory {
		logging.Warn().Msg("User data is held in memory and will be lost on restart")
	}

	store, err := userdata.OpenBadgerStore(cfg.UserData)
	if err != nil {
		return fmt.Errorf("open user-data store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing user-data store")
		}
	}()

	mediator, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer func() {
		if err := mediator.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	svc := userdata.NewService(store, mediator, userdata.Config{
		HistoryTTL: cfg.Cache.HistoryTTL,
		ProfileTTL: cfg.Cache.ProfileTTL,
	})

	tree, err := supervisor.NewSupervisorTree("userdata", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if !cfg.UserData.InMemory {
		tree.AddBackgroundService(services.NewStoreGCService(store, 0))
	}

	health := api.NewHealthHandler("userdata", nil)
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security))
	tree.AddHTTPServer("userdata-http", cfg.Server, api.NewUserDataRouter(api.NewUserDataHandler(svc), health, mw))

	return tree.Run(context.Background())
}
