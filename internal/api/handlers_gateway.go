// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package api

import (
	"net/http"

	"github.com/tomtom215/shelfwise/internal/gateway"
)

const (
	// APIKeyHeader carries the client's API key.
	APIKeyHeader = "X-API-Key"

	// CacheStatusHeader is set to "stale" when a last-good response is served.
	CacheStatusHeader = "X-Cache-Status"
)

// GatewayHandler serves the public recommendation endpoint.
type GatewayHandler struct {
	router   *gateway.Router
	defaultK int
	maxK     int
}

// NewGatewayHandler creates the gateway handler.
func NewGatewayHandler(router *gateway.Router, defaultK, maxK int) *GatewayHandler {
	return &GatewayHandler{router: router, defaultK: defaultK, maxK: maxK}
}

// Recommend handles GET /recommend/{user_id}?k=.
//
// The API key is checked before the request is parsed so unauthenticated
// callers learn nothing about valid ids.
func (h *GatewayHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get(APIKeyHeader)
	if err := h.router.Authenticate(apiKey); err != nil {
		respondErr(w, r, err)
		return
	}

	userID, err := pathID(r, "user_id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	k, err := queryK(r, h.defaultK, h.maxK)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	resp, err := h.router.HandleRecommend(r.Context(), userID, apiKey, k)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if resp.Stale {
		w.Header().Set(CacheStatusHeader, "stale")
	}
	respondOK(w, r, http.StatusOK, resp.Result)
}
