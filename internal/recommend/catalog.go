// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package recommend

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/metrics"
)

// CatalogSnapshot is one immutable, versioned copy of the catalog.
type CatalogSnapshot struct {
	Version  int64     `json:"version"`
	Products []Product `json:"-"`
	Checksum string    `json:"checksum"`
	LoadedAt time.Time `json:"loaded_at"`

	// popularity hashes the interaction counts, which change without a
	// version bump.
	popularity uint64
}

// CatalogInfo describes the active snapshot.
type CatalogInfo struct {
	Version  int64     `json:"version"`
	Products int       `json:"products"`
	Checksum string    `json:"checksum"`
	LoadedAt time.Time `json:"loaded_at"`
}

// CatalogStore holds the active catalog snapshot and serves its vectors.
//
// Vectors are memoized in process for the active version and cached under
// "recommendation:catalog:<version>" so replicas share the build. A reload
// that changes content bumps the version and removes every ranking keyed
// by the previous one. A reload that only changes interaction counts keeps
// the version and the vectors and swaps in the new popularity; rankings
// cached under the version pick it up when they expire.
type CatalogStore struct {
	builder FeatureBuilder
	cache   *cache.Mediator
	pool    *Pool
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu       sync.RWMutex
	snapshot *CatalogSnapshot
	memo     *CatalogVectors

	loadMu sync.Mutex
}

// NewCatalogStore creates an empty store. Vectors returns ErrEmptyCatalog
// until the first successful Load.
func NewCatalogStore(builder FeatureBuilder, mediator *cache.Mediator, pool *Pool, ttl time.Duration) *CatalogStore {
	return &CatalogStore{
		builder: builder,
		cache:   mediator,
		pool:    pool,
		ttl:     ttl,
		now:     time.Now,
		logger:  logging.WithComponent("catalog"),
	}
}

// Snapshot returns the active snapshot, or nil before the first load.
func (s *CatalogStore) Snapshot() *CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Info describes the active snapshot. ok is false before the first load.
func (s *CatalogStore) Info() (info CatalogInfo, ok bool) {
	snap := s.Snapshot()
	if snap == nil {
		return CatalogInfo{}, false
	}
	return CatalogInfo{
		Version:  snap.Version,
		Products: len(snap.Products),
		Checksum: snap.Checksum,
		LoadedAt: snap.LoadedAt,
	}, true
}

// Load installs products as the new catalog. It reports whether the
// version changed; identical content is a no-op and changed interaction
// counts alone only refresh popularity.
func (s *CatalogStore) Load(ctx context.Context, products []Product) (bool, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if len(products) == 0 {
		metrics.CatalogLoads.WithLabelValues("failed").Inc()
		return false, ErrEmptyCatalog
	}

	sorted := slices.Clone(products)
	slices.SortFunc(sorted, func(a, b Product) int { return a.ProductID - b.ProductID })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ProductID == sorted[i-1].ProductID {
			metrics.CatalogLoads.WithLabelValues("failed").Inc()
			return false, fmt.Errorf("duplicate product_id %d in catalog", sorted[i].ProductID)
		}
	}

	sum, err := checksum(sorted)
	if err != nil {
		metrics.CatalogLoads.WithLabelValues("failed").Inc()
		return false, err
	}

	pop := popularityChecksum(sorted)

	prev := s.Snapshot()
	if prev != nil && prev.Checksum == sum {
		if prev.popularity != pop {
			s.refreshPopularity(prev, sorted, pop)
			metrics.CatalogLoads.WithLabelValues("popularity").Inc()
			s.logger.Debug().Int64("version", prev.Version).Msg("Catalog popularity refreshed, keeping version")
			return false, nil
		}
		metrics.CatalogLoads.WithLabelValues("unchanged").Inc()
		s.logger.Debug().Int64("version", prev.Version).Msg("Catalog unchanged, keeping version")
		return false, nil
	}

	now := s.now()
	next := &CatalogSnapshot{
		Version:    nextVersion(prev, now),
		Products:   sorted,
		Checksum:   sum,
		LoadedAt:   now.UTC(),
		popularity: pop,
	}

	s.mu.Lock()
	s.snapshot = next
	s.memo = nil
	s.mu.Unlock()

	metrics.CatalogLoads.WithLabelValues("loaded").Inc()
	metrics.CatalogVersion.Set(float64(next.Version))
	metrics.CatalogProducts.Set(float64(len(sorted)))

	logger := logging.Ctx(ctx).With().Str("component", "catalog").Logger()
	logger.Info().
		Int64("version", next.Version).
		Int("products", len(sorted)).
		Str("checksum", sum).
		Msg("Catalog loaded")

	if _, err := s.Vectors(ctx); err != nil {
		logger.Warn().Err(err).Int64("version", next.Version).Msg("Catalog vector warm-up failed, building lazily")
	}

	if prev != nil {
		s.invalidateVersion(ctx, prev.Version)
	}
	return true, nil
}

// nextVersion is strictly greater than the previous version and tracks
// wall-clock milliseconds so versions stay monotonic across restarts.
func nextVersion(prev *CatalogSnapshot, now time.Time) int64 {
	v := now.UnixMilli()
	if prev != nil && v <= prev.Version {
		v = prev.Version + 1
	}
	return v
}

// productContent is the part of a product that feeds its vector.
type productContent struct {
	ProductID   int      `json:"product_id"`
	ProductName string   `json:"product_name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// checksum hashes the id-sorted catalog content. Interaction counts are
// excluded.
func checksum(sorted []Product) (string, error) {
	content := make([]productContent, len(sorted))
	for i, p := range sorted {
		content[i] = productContent{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			Category:    p.Category,
			Description: p.Description,
			Tags:        p.Tags,
		}
	}
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode catalog: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

func popularityChecksum(sorted []Product) uint64 {
	d := xxhash.New()
	var buf [16]byte
	for _, p := range sorted {
		binary.BigEndian.PutUint64(buf[:8], uint64(p.ProductID))
		binary.BigEndian.PutUint64(buf[8:], uint64(p.InteractionCount))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// refreshPopularity installs new interaction counts under the current
// version. The memoized vectors are reused.
func (s *CatalogStore) refreshPopularity(prev *CatalogSnapshot, sorted []Product, pop uint64) {
	next := *prev
	next.Products = sorted
	next.popularity = pop

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &next
	if s.memo != nil && s.memo.Version == next.Version {
		s.memo = withPopularity(s.memo, &next)
	}
}

// withPopularity returns a shallow copy of vecs carrying the interaction
// counts of snap.
func withPopularity(vecs *CatalogVectors, snap *CatalogSnapshot) *CatalogVectors {
	out := *vecs
	out.Popularity = make(map[int]float64, len(snap.Products))
	for _, p := range snap.Products {
		out.Popularity[p.ProductID] = float64(p.InteractionCount)
	}
	return &out
}

func (s *CatalogStore) invalidateVersion(ctx context.Context, version int64) {
	logger := logging.Ctx(ctx)
	ns := cache.NamespaceRecommendation

	if err := s.cache.Invalidate(ctx, ns, cache.Key(ns, "catalog", version)); err != nil {
		logger.Warn().Err(err).Int64("version", version).Msg("Failed to drop old catalog vectors")
	}
	pattern := string(ns) + ":*:" + strconv.FormatInt(version, 10) + ":*"
	if _, err := s.cache.InvalidateMatch(ctx, ns, pattern); err != nil {
		logger.Warn().Err(err).Int64("version", version).Msg("Failed to drop rankings of old catalog version")
	}
}

// Vectors returns the vectors of the active catalog version.
func (s *CatalogStore) Vectors(ctx context.Context) (*CatalogVectors, error) {
	s.mu.RLock()
	snap, memo := s.snapshot, s.memo
	s.mu.RUnlock()

	if snap == nil {
		return nil, ErrEmptyCatalog
	}
	if memo != nil && memo.Version == snap.Version {
		return memo, nil
	}

	ns := cache.NamespaceRecommendation
	vecs, err := cache.GetOrCompute(ctx, s.cache, ns, cache.Key(ns, "catalog", snap.Version), s.ttl,
		func(ctx context.Context) (*CatalogVectors, error) {
			return Run(ctx, s.pool, "catalog_vectors", func(context.Context) (*CatalogVectors, error) {
				return s.build(snap)
			})
		})
	if err != nil {
		return nil, err
	}
	// The cached copy may predate a popularity refresh.
	vecs = withPopularity(vecs, snap)

	s.mu.Lock()
	if s.snapshot == snap {
		s.memo = vecs
	}
	s.mu.Unlock()
	return vecs, nil
}

func (s *CatalogStore) build(snap *CatalogSnapshot) (*CatalogVectors, error) {
	vectors, err := s.builder.BuildProductVectors(snap.Products)
	if err != nil {
		return nil, fmt.Errorf("build catalog vectors: %w", err)
	}

	dim := -1
	for id, v := range vectors {
		if dim < 0 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return nil, fmt.Errorf("product %d: %w", id, &DimensionError{Want: dim, Got: len(v)})
		}
	}

	popularity := make(map[int]float64, len(snap.Products))
	names := make(map[int]string, len(snap.Products))
	for _, p := range snap.Products {
		popularity[p.ProductID] = float64(p.InteractionCount)
		names[p.ProductID] = p.ProductName
	}

	return &CatalogVectors{
		Version:    snap.Version,
		Dim:        max(dim, 0),
		Vectors:    vectors,
		Popularity: popularity,
		Names:      names,
	}, nil
}
