// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package recommend

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shelfwise/internal/metrics"
	"github.com/tomtom215/shelfwise/internal/validation"
)

// FileCatalogSource reads the catalog from a JSON array of products on disk.
type FileCatalogSource struct {
	Path string
}

// Catalog reads and validates the file.
func (f FileCatalogSource) Catalog(_ context.Context) ([]Product, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog file %s: %w", f.Path, err)
	}
	if verr := validation.ValidateSlice(products); verr != nil {
		return nil, fmt.Errorf("catalog file %s: %w", f.Path, verr)
	}
	return products, nil
}

// Refresh fetches the catalog from src and loads it. It reports whether the
// active version changed.
func (s *CatalogStore) Refresh(ctx context.Context, src CatalogSource) (bool, error) {
	start := time.Now()
	products, err := src.Catalog(ctx)
	if err != nil {
		metrics.CatalogLoads.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("fetch catalog: %w", err)
	}

	changed, err := s.Load(ctx, products)
	if err != nil {
		return false, err
	}
	s.logger.Debug().Bool("changed", changed).Int("products", len(products)).
		Dur("elapsed", time.Since(start)).Msg("Catalog refreshed")
	return changed, nil
}
