// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package algorithms

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/shelfwise/internal/recommend"
)

// CosineRanker ranks catalog products by cosine similarity to a user vector.
//
// A zero user vector (cold start) falls back to popularity ordering by
// catalog interaction count. In both modes ties are broken by ascending
// product id, so rankings are deterministic.
type CosineRanker struct{}

// NewCosineRanker creates a ranker.
func NewCosineRanker() *CosineRanker {
	return &CosineRanker{}
}

// Rank returns at most k products of catalog not in exclude.
func (r *CosineRanker) Rank(user recommend.Vector, catalog *recommend.CatalogVectors, exclude map[int]struct{}, k int) (recommend.Ranking, error) {
	if catalog == nil || len(catalog.Names) == 0 {
		return recommend.Ranking{}, recommend.ErrEmptyCatalog
	}
	if len(user) != catalog.Dim {
		return recommend.Ranking{}, &recommend.DimensionError{Want: catalog.Dim, Got: len(user)}
	}

	strategy := recommend.StrategySimilarity
	if user.IsZero() {
		strategy = recommend.StrategyPopularity
	}

	items := []recommend.ScoredProduct{}
	if k <= 0 {
		return recommend.Ranking{Items: items, Strategy: strategy}, nil
	}

	for id, name := range catalog.Names {
		if _, skip := exclude[id]; skip {
			continue
		}

		var score float64
		if strategy == recommend.StrategyPopularity {
			score = catalog.Popularity[id]
		} else {
			vec := catalog.Vectors[id]
			if len(vec) != catalog.Dim {
				return recommend.Ranking{}, fmt.Errorf("product %d: %w", id, &recommend.DimensionError{Want: catalog.Dim, Got: len(vec)})
			}
			score = cosineSimilarity(user, vec)
		}
		items = append(items, recommend.ScoredProduct{ProductID: id, Score: score, ProductName: name})
	}

	sortScored(items)
	if len(items) > k {
		items = items[:k]
	}
	return recommend.Ranking{Items: items, Strategy: strategy}, nil
}

// sortScored orders by descending score, then ascending product id.
func sortScored(items []recommend.ScoredProduct) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ProductID < items[j].ProductID
	})
}

// cosineSimilarity computes cosine similarity between two vectors of equal
// length. A zero vector has similarity 0 with everything.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ensure the implementations satisfy the engine's interfaces.
var (
	_ recommend.FeatureBuilder = (*TermVectorizer)(nil)
	_ recommend.Ranker         = (*CosineRanker)(nil)
)
