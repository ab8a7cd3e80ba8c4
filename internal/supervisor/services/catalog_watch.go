// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/recommend"
)

var errWatcherClosed = errors.New("catalog watcher closed")

// defaultDebounce collapses the burst of events one save produces.
const defaultDebounce = 250 * time.Millisecond

// CatalogWatchService reloads a file-backed catalog whenever the file is
// written, created or renamed into place.
//
// The parent directory is watched rather than the file, so replacing the
// file atomically (write to temp, rename) is picked up.
type CatalogWatchService struct {
	store    CatalogRefresher
	source   recommend.FileCatalogSource
	debounce time.Duration
	logger   zerolog.Logger
}

// NewCatalogWatchService creates the service. A non-positive debounce uses
// the default.
func NewCatalogWatchService(store CatalogRefresher, path string, debounce time.Duration) *CatalogWatchService {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &CatalogWatchService{
		store:    store,
		source:   recommend.FileCatalogSource{Path: path},
		debounce: debounce,
		logger:   logging.WithComponent("catalog-watch").With().Str("path", path).Logger(),
	}
}

// Serve implements suture.Service. It loads the file once, then on every
// debounced change. A failure to set up the watcher is returned so the
// supervisor retries with backoff.
func (s *CatalogWatchService) Serve(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.source.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.logger.Info().Msg("Catalog watch starting")

	s.reload(ctx)

	target := filepath.Clean(s.source.Path)
	debounce := time.NewTimer(s.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Catalog watch stopped")
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errWatcherClosed
			}
			if filepath.Clean(event.Name) != target || !relevant(event.Op) {
				continue
			}
			debounce.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errWatcherClosed
			}
			s.logger.Warn().Err(err).Msg("Catalog watcher error")

		case <-debounce.C:
			s.reload(ctx)
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}

func (s *CatalogWatchService) reload(ctx context.Context) {
	changed, err := s.store.Refresh(logging.ContextWithNewCorrelationID(ctx), s.source)
	if err != nil {
		// The previous catalog stays active.
		s.logger.Warn().Err(err).Msg("Catalog file reload failed")
		return
	}
	if changed {
		s.logger.Info().Msg("Catalog file reloaded")
	}
}

// String implements fmt.Stringer for suture logging.
func (s *CatalogWatchService) String() string {
	return "catalog-watch"
}
