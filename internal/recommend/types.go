// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package recommend

import (
	"context"
	"time"
)

// InteractionType classifies user-product interactions for implicit feedback.
type InteractionType string

const (
	// InteractionView is a product page view.
	InteractionView InteractionType = "view"
	// InteractionCart is an add-to-cart.
	InteractionCart InteractionType = "cart"
	// InteractionPurchase is a completed purchase.
	InteractionPurchase InteractionType = "purchase"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionCart, InteractionPurchase:
		return true
	default:
		return false
	}
}

// Weight returns the implicit feedback weight of one interaction.
// Purchases scale with quantity; a quantity below 1 counts as 1.
func (t InteractionType) Weight(quantity int) float64 {
	if quantity < 1 {
		quantity = 1
	}
	switch t {
	case InteractionView:
		return 1
	case InteractionCart:
		return 2
	case InteractionPurchase:
		return 3 * float64(quantity)
	default:
		return 0
	}
}

// Strategy names how a ranking was produced.
type Strategy string

const (
	// StrategySimilarity ranks by cosine similarity to the user vector.
	StrategySimilarity Strategy = "similarity"
	// StrategyPopularity ranks by interaction count (cold start).
	StrategyPopularity Strategy = "popularity"
)

// Product is one catalog entry.
type Product struct {
	ProductID        int      `json:"product_id" validate:"required,gt=0"`
	ProductName      string   `json:"product_name" validate:"required,max=512"`
	Category         string   `json:"category" validate:"max=128"`
	Description      string   `json:"description,omitempty" validate:"max=8192"`
	Tags             []string `json:"tags,omitempty" validate:"max=64,dive,max=64"`
	InteractionCount int64    `json:"interaction_count" validate:"gte=0"`
}

// Interaction is one weighted entry of a user's history, oldest first.
type Interaction struct {
	ProductID int     `json:"product_id"`
	Weight    float64 `json:"weight"`
}

// Vector is a fixed-length feature vector. Every vector of one catalog
// version has the same length.
type Vector []float64

// IsZero reports whether every component is zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// ScoredProduct is one ranked recommendation.
type ScoredProduct struct {
	ProductID   int     `json:"product_id"`
	Score       float64 `json:"score"`
	ProductName string  `json:"product_name"`
}

// Ranking is the ordered output of a Ranker.
type Ranking struct {
	Items    []ScoredProduct `json:"items"`
	Strategy Strategy        `json:"strategy"`
}

// Result is an immutable recommendation list for one user.
type Result struct {
	UserID         int             `json:"user_id"`
	CatalogVersion int64           `json:"catalog_version"`
	Items          []ScoredProduct `json:"items"`
	Strategy       Strategy        `json:"strategy"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// CatalogVectors is the ranking input derived from one catalog version.
type CatalogVectors struct {
	Version    int64           `json:"version"`
	Dim        int             `json:"dim"`
	Vectors    map[int]Vector  `json:"vectors"`
	Popularity map[int]float64 `json:"popularity"`
	Names      map[int]string  `json:"names"`
}

// FeatureBuilder turns catalog and history records into vectors.
// Implementations are pure; callers own caching.
type FeatureBuilder interface {
	// BuildProductVectors returns one vector per product id.
	BuildProductVectors(catalog []Product) (map[int]Vector, error)

	// BuildUserVector returns the weight-normalized sum of the vectors of
	// the interacted products, or a zero vector when none apply.
	BuildUserVector(history []Interaction, vectors map[int]Vector) (Vector, error)
}

// Ranker orders catalog products for one user vector.
type Ranker interface {
	// Rank returns at most k products not in exclude.
	Rank(user Vector, catalog *CatalogVectors, exclude map[int]struct{}, k int) (Ranking, error)
}

// HistorySource fetches a user's interaction history.
type HistorySource interface {
	// History returns ErrUserNotFound for unknown users and wraps every
	// other failure in ErrUpstreamUnavailable.
	History(ctx context.Context, userID int) ([]Interaction, error)
}

// CatalogSource fetches the full product catalog.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]Product, error)
}
