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
)

// GarbageCollector is satisfied by *userdata.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// StoreGCService runs value-log garbage collection on a fixed interval.
// Failures are logged and retried on the next tick.
type StoreGCService struct {
	store    GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
}

// NewStoreGCService creates the service. A non-positive interval means 10m.
func NewStoreGCService(store GarbageCollector, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{
		store:    store,
		interval: interval,
		logger:   logging.WithComponent("store-gc"),
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.store.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("Value log GC failed")
				continue
			}
			s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("Value log GC complete")
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *StoreGCService) String() string {
	return "store-gc"
}
