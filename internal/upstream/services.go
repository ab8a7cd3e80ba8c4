// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/shelfwise/internal/recommend"
)

// UserDataClient reads histories and the catalog from the user-data service.
type UserDataClient struct {
	*Client
}

// NewUserDataClient creates a client for the user-data service.
func NewUserDataClient(baseURL string, timeout time.Duration, breakerCfg BreakerConfig) *UserDataClient {
	return &UserDataClient{Client: NewClient("userdata", baseURL, timeout, breakerCfg)}
}

// History returns the user's weighted interactions, oldest first.
func (c *UserDataClient) History(ctx context.Context, userID int) ([]recommend.Interaction, error) {
	path := fmt.Sprintf("/internal/users/%d/history", userID)
	history, err := getJSON[[]recommend.Interaction](ctx, c.Client, path, nil, recommend.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []recommend.Interaction{}
	}
	return history, nil
}

// Catalog returns every product with its interaction count.
func (c *UserDataClient) Catalog(ctx context.Context) ([]recommend.Product, error) {
	return getJSON[[]recommend.Product](ctx, c.Client, "/internal/catalog", nil, recommend.ErrUpstreamUnavailable)
}

// RecommendClient fetches rankings from the recommendation service.
type RecommendClient struct {
	*Client
}

// NewRecommendClient creates a client for the recommendation service.
func NewRecommendClient(baseURL string, timeout time.Duration, breakerCfg BreakerConfig) *RecommendClient {
	return &RecommendClient{Client: NewClient("recommender", baseURL, timeout, breakerCfg)}
}

// Recommend returns the top k products for the user.
func (c *RecommendClient) Recommend(ctx context.Context, userID, k int) (*recommend.Result, error) {
	path := fmt.Sprintf("/internal/recommend/%d", userID)
	query := url.Values{"k": []string{strconv.Itoa(k)}}
	res, err := getJSON[*recommend.Result](ctx, c.Client, path, query, recommend.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%s %s: empty result: %w", c.name, path, recommend.ErrUpstreamUnavailable)
	}
	return res, nil
}

var (
	_ recommend.HistorySource = (*UserDataClient)(nil)
	_ recommend.CatalogSource = (*UserDataClient)(nil)
)
