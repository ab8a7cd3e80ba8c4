// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/recommend"
)

// CatalogRefresher loads a catalog from a source.
// Satisfied by *recommend.CatalogStore.
type CatalogRefresher interface {
	Refresh(ctx context.Context, src recommend.CatalogSource) (bool, error)
}

// CatalogRefreshConfig holds the refresh schedule.
type CatalogRefreshConfig struct {
	// Interval between successful refreshes. Default: 5m
	Interval time.Duration

	// RetryInterval is used instead of Interval after a failed refresh.
	// Default: 5s
	RetryInterval time.Duration

	// Timeout bounds one refresh. Default: 30s
	Timeout time.Duration
}

// CatalogRefreshService polls a catalog source and reloads the store. It
// refreshes once on start so the recommender serves as soon as the user-data
// service answers.
type CatalogRefreshService struct {
	store  CatalogRefresher
	source recommend.CatalogSource
	config CatalogRefreshConfig
	logger zerolog.Logger
}

// NewCatalogRefreshService creates the service.
func NewCatalogRefreshService(store CatalogRefresher, source recommend.CatalogSource, cfg CatalogRefreshConfig) *CatalogRefreshService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.RetryInterval > cfg.Interval {
		cfg.RetryInterval = cfg.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CatalogRefreshService{
		store:  store,
		source: source,
		config: cfg,
		logger: logging.WithComponent("catalog-refresh"),
	}
}

// Serve implements suture.Service.
func (s *CatalogRefreshService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.config.Interval).Msg("Catalog refresh starting")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Catalog refresh stopped")
			return ctx.Err()

		case <-timer.C:
			next := s.config.Interval
			if !s.refresh(ctx) {
				next = s.config.RetryInterval
			}
			timer.Reset(next)
		}
	}
}

// refresh runs one bounded refresh and reports whether it succeeded.
func (s *CatalogRefreshService) refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(logging.ContextWithNewCorrelationID(ctx), s.config.Timeout)
	defer cancel()

	changed, err := s.store.Refresh(ctx, s.source)
	if err != nil {
		s.logger.Warn().Str("correlation_id", logging.CorrelationIDFromContext(ctx)).Err(err).Dur("retry_in", s.config.RetryInterval).Msg("Catalog refresh failed")
		return false
	}
	if changed {
		s.logger.Info().Msg("Catalog changed")
	}
	return true
}

// String implements fmt.Stringer for suture logging.
func (s *CatalogRefreshService) String() string {
	return "catalog-refresh"
}
