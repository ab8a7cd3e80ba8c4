// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package api

import (
	"net/http"

	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/recommend"
)

// RecommenderHandler serves the recommendation service's internal API.
type RecommenderHandler struct {
	engine  *recommend.Engine
	catalog *recommend.CatalogStore
	source  recommend.CatalogSource
}

// NewRecommenderHandler creates the handler. source backs manual reloads.
func NewRecommenderHandler(engine *recommend.Engine, catalog *recommend.CatalogStore, source recommend.CatalogSource) *RecommenderHandler {
	return &RecommenderHandler{engine: engine, catalog: catalog, source: source}
}

// Recommend handles GET /internal/recommend/{user_id}?k=.
func (h *RecommenderHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	defaultK, maxK := h.engine.Limits()
	k, err := queryK(r, defaultK, maxK)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	res, err := h.engine.Recommend(r.Context(), userID, k)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, res)
}

// catalogReloadResult is the body of a manual reload.
type catalogReloadResult struct {
	Changed bool                  `json:"changed"`
	Catalog recommend.CatalogInfo `json:"catalog"`
}

// ReloadCatalog handles POST /internal/catalog/reload.
func (h *RecommenderHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	changed, err := h.catalog.Refresh(r.Context(), h.source)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	info, _ := h.catalog.Info()

	logging.Ctx(r.Context()).Info().Bool("changed", changed).Int64("version", info.Version).
		Msg("Manual catalog reload")
	respondOK(w, r, http.StatusOK, catalogReloadResult{Changed: changed, Catalog: info})
}

// CatalogVersion handles GET /internal/catalog/version.
func (h *RecommenderHandler) CatalogVersion(w http.ResponseWriter, r *http.Request) {
	info, ok := h.catalog.Info()
	if !ok {
		respondErr(w, r, recommend.ErrEmptyCatalog)
		return
	}
	respondOK(w, r, http.StatusOK, info)
}
