// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shelfwise/internal/cache"
	"github.com/tomtom215/shelfwise/internal/config"
	"github.com/tomtom215/shelfwise/internal/gateway"
	"github.com/tomtom215/shelfwise/internal/recommend"
	"github.com/tomtom215/shelfwise/internal/recommend/algorithms"
	"github.com/tomtom215/shelfwise/internal/upstream"
	"github.com/tomtom215/shelfwise/internal/userdata"
)

const testAPIKey = "test-key"

// stack runs the three services against one shared in-memory cache, the
// way they share one Redis in production.
type stack struct {
	userdata    *httptest.Server
	recommender *httptest.Server
	gateway     *httptest.Server

	cache   *cache.Mediator
	catalog *recommend.CatalogStore

	recommenderHits  atomic.Int32
	slowHistory      atomic.Bool
	recommenderFault atomic.Bool
}

func testMiddleware() *ChiMiddleware {
	return NewChiMiddleware(ChiMiddlewareConfigFromSecurity(config.SecurityConfig{
		RateLimitDisabled: true,
		CORSOrigins:       []string{"*"},
	}))
}

func newStack(t *testing.T) *stack {
	t.Helper()
	s := &stack{cache: cache.NewMemoryMediator(time.Second)}
	t.Cleanup(func() { _ = s.cache.Close() })
	mw := testMiddleware()

	// User-data service.
	store, err := userdata.OpenBadgerStore(config.UserDataConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	svc := userdata.NewService(store, s.cache, userdata.Config{HistoryTTL: time.Hour, ProfileTTL: time.Hour})
	udRouter := NewUserDataRouter(NewUserDataHandler(svc), NewHealthHandler("userdata", nil), mw)
	s.userdata = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.slowHistory.Load() && strings.HasSuffix(r.URL.Path, "/history") {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		udRouter.ServeHTTP(w, r)
	}))
	t.Cleanup(s.userdata.Close)

	// Recommendation service.
	udClient := upstream.NewUserDataClient(s.userdata.URL, 200*time.Millisecond, upstream.DefaultBreakerConfig())
	builder := algorithms.NewTermVectorizer()
	s.catalog = recommend.NewCatalogStore(builder, s.cache, nil, time.Hour)
	engine, err := recommend.NewEngine(recommend.DefaultEngineConfig(), recommend.EngineDeps{
		Catalog: s.catalog,
		History: udClient,
		Builder: builder,
		Ranker:  algorithms.NewCosineRanker(),
		Cache:   s.cache,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	recRouter := NewRecommenderRouter(NewRecommenderHandler(engine, s.catalog, udClient),
		NewHealthHandler("recommender", nil), mw)
	s.recommender = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.recommenderHits.Add(1)
		if s.recommenderFault.Load() && strings.HasPrefix(r.URL.Path, "/internal/recommend/") {
			respondErr(w, r, fmt.Errorf("rank: %w", &recommend.DimensionError{Want: 3, Got: 2}))
			return
		}
		recRouter.ServeHTTP(w, r)
	}))
	t.Cleanup(s.recommender.Close)

	// Gateway.
	recClient := upstream.NewRecommendClient(s.recommender.URL, 2*time.Second, upstream.DefaultBreakerConfig())
	gw, err := gateway.NewRouter(gateway.Config{
		APIKeys:  []string{testAPIKey},
		FreshTTL: time.Minute,
		StaleTTL: time.Hour,
	}, recClient, s.cache)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	s.gateway = httptest.NewServer(NewGatewayRouter(NewGatewayHandler(gw, 10, 100), NewHealthHandler("gateway", nil), mw))
	t.Cleanup(s.gateway.Close)

	s.seed(t)
	return s
}

// seed creates users 42 and 9, ingests four products, records a purchase
// of product 1 by user 42 and loads the catalog into the recommender.
func (s *stack) seed(t *testing.T) {
	t.Helper()

	for _, body := range []string{
		`{"user_id":42,"name":"Ada","location":"Berlin"}`,
		`{"user_id":9,"name":"Grace"}`,
	} {
		s.mustDo(t, http.MethodPost, s.userdata.URL+"/internal/users", body, http.StatusCreated)
	}

	s.mustDo(t, http.MethodPut, s.userdata.URL+"/internal/catalog", `[
		{"product_id":1,"product_name":"Trail Running Shoes","category":"Footwear","tags":["running","trail"],"interaction_count":5},
		{"product_id":2,"product_name":"Road Running Shoes","category":"Footwear","tags":["running","road"],"interaction_count":2},
		{"product_id":3,"product_name":"Cast Iron Skillet","category":"Kitchen","tags":["cookware"],"interaction_count":9},
		{"product_id":4,"product_name":"Chef Knife","category":"Kitchen","tags":["cutlery"],"interaction_count":7}
	]`, http.StatusOK)

	s.mustDo(t, http.MethodPost, s.userdata.URL+"/internal/users/42/interactions",
		`{"product_id":1,"type":"purchase","quantity":1}`, http.StatusCreated)

	s.mustDo(t, http.MethodPost, s.recommender.URL+"/internal/catalog/reload", "", http.StatusOK)
}

// do sends a request and decodes the envelope.
func do(t *testing.T, method, url, body string, header http.Header) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, url, err)
	}
	return resp, env
}

func (s *stack) mustDo(t *testing.T, method, url, body string, want int) envelope {
	t.Helper()
	resp, env := do(t, method, url, body, nil)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status = %d, want %d (error %+v)", method, url, resp.StatusCode, want, env.Error)
	}
	return env
}

// recommendVia calls the gateway for userID.
func (s *stack) recommendVia(t *testing.T, path, apiKey string) (*http.Response, envelope) {
	t.Helper()
	h := http.Header{}
	if apiKey != "" {
		h.Set(APIKeyHeader, apiKey)
	}
	return do(t, http.MethodGet, s.gateway.URL+path, "", h)
}

// envelope decodes a response body.
type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    *APIError       `json:"error"`
	Metadata Metadata        `json:"metadata"`
}

func (e envelope) result(t *testing.T) recommend.Result {
	t.Helper()
	var res recommend.Result
	if err := json.Unmarshal(e.Data, &res); err != nil {
		t.Fatalf("decode result: %v (data %s)", err, e.Data)
	}
	return res
}

func ids(items []recommend.ScoredProduct) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ProductID
	}
	return out
}
