// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package userdata implements the user-data service: user profiles,
// interaction histories and the product catalog, persisted in BadgerDB.
//
// Recording an interaction invalidates every cache entry derived from the
// user's history across all three tiers, so the next recommendation for
// that user reflects the new interaction.
package userdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/metrics"
	"github.com/tomtom215/shelfwise/internal/recommend"
	"github.com/tomtom215/shelfwise/internal/validation"
)

// Config holds cache lifetimes for the service.
type Config struct {
	HistoryTTL time.Duration
	ProfileTTL time.Duration
}

// Service is the user-data business layer.
type Service struct {
	store  Store
	cache  *cache.Mediator
	config Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a Service over store, caching reads through mediator.
func NewService(store Store, mediator *cache.Mediator, cfg Config) *Service {
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = time.Hour
	}
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = time.Hour
	}
	return &Service{
		store:  store,
		cache:  mediator,
		config: cfg,
		now:    time.Now,
		logger: logging.WithComponent("userdata"),
	}
}

// CreateUser validates and stores a new user.
func (s *Service) CreateUser(ctx context.Context, user User) (*User, error) {
	if verr := validation.ValidateStruct(&user); verr != nil {
		return nil, verr
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Int("user_id", user.UserID).Msg("User created")
	return &user, nil
}

// GetUser returns a user profile, cached under "user:<id>:profile".
func (s *Service) GetUser(ctx context.Context, id int) (*User, error) {
	ns := cache.NamespaceUser
	return cache.GetOrCompute(ctx, s.cache, ns, cache.Key(ns, id, "profile"), s.config.ProfileTTL,
		func(ctx context.Context) (*User, error) {
			return s.store.GetUser(ctx, id)
		})
}

// DeleteUser removes a user with their interactions and drops every cache
// entry derived from them.
func (s *Service) DeleteUser(ctx context.Context, id int) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidateUser(ctx, id)

	logging.Ctx(ctx).Info().Int("user_id", id).Msg("User deleted")
	return nil
}

// History returns the user's weighted interaction history, oldest first,
// cached under "user:<id>:history".
func (s *Service) History(ctx context.Context, userID int) ([]recommend.Interaction, error) {
	ns := cache.NamespaceUser
	return cache.GetOrCompute(ctx, s.cache, ns, cache.Key(ns, userID, "history"), s.config.HistoryTTL,
		func(ctx context.Context) ([]recommend.Interaction, error) {
			events, err := s.store.Interactions(ctx, userID)
			if err != nil {
				return nil, err
			}
			history := make([]recommend.Interaction, len(events))
			for i, ev := range events {
				history[i] = recommend.Interaction{ProductID: ev.ProductID, Weight: ev.Weight()}
			}
			return history, nil
		})
}

// RecordInteraction appends event to the user's history and invalidates
// the user's cached history, user vectors, rankings and gateway responses.
// The gateway's stale copy is kept.
func (s *Service) RecordInteraction(ctx context.Context, userID int, event InteractionEvent) error {
	if verr := validation.ValidateStruct(&event); verr != nil {
		return verr
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if event.Type != recommend.InteractionPurchase {
		event.Quantity = 0
	} else if event.Quantity < 1 {
		event.Quantity = 1
	}

	if err := s.store.AppendInteraction(ctx, userID, event); err != nil {
		return err
	}
	metrics.InteractionsRecorded.WithLabelValues(string(event.Type)).Inc()

	s.invalidateUser(ctx, userID)

	logging.Ctx(ctx).Debug().
		Int("user_id", userID).
		Int("product_id", event.ProductID).
		Str("type", string(event.Type)).
		Msg("Interaction recorded")
	return nil
}

// invalidateUser drops "user:<id>:", "recommendation:<id>:" and
// "gateway:<id>:" entries. Failures are logged; the entries then age out
// by TTL.
func (s *Service) invalidateUser(ctx context.Context, userID int) {
	for _, ns := range cache.Namespaces {
		if _, err := s.cache.InvalidatePrefix(ctx, ns, cache.Prefix(ns, userID)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Int("user_id", userID).
				Str("namespace", string(ns)).
				Msg("History-change invalidation failed")
		}
	}
}

// IngestCatalog validates and upserts products.
func (s *Service) IngestCatalog(ctx context.Context, products []recommend.Product) (int, error) {
	if len(products) == 0 {
		return 0, recommend.ErrEmptyCatalog
	}
	if verr := validation.ValidateSlice(products); verr != nil {
		return 0, verr
	}

	seen := make(map[int]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.ProductID]; dup {
			return 0, fmt.Errorf("%w: duplicate product_id %d", ErrDuplicateProduct, p.ProductID)
		}
		seen[p.ProductID] = struct{}{}
	}

	n, err := s.store.UpsertProducts(ctx, products)
	if err != nil {
		return n, fmt.Errorf("ingest catalog: %w", err)
	}

	logging.Ctx(ctx).Info().Int("products", n).Msg("Catalog ingested")
	return n, nil
}

// Catalog returns every product with its interaction count.
func (s *Service) Catalog(ctx context.Context) ([]recommend.Product, error) {
	return s.store.Products(ctx)
}
