// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package api

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/shelfwise/internal/recommend"
	"github.com/tomtom215/shelfwise/internal/userdata"
)

// UserDataHandler serves the user-data service's internal API.
type UserDataHandler struct {
	svc *userdata.Service
}

// NewUserDataHandler creates the handler.
func NewUserDataHandler(svc *userdata.Service) *UserDataHandler {
	return &UserDataHandler{svc: svc}
}

// CreateUser handles POST /internal/users.
func (h *UserDataHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user userdata.User
	if err := decodeJSON(r, &user); err != nil {
		respondErr(w, r, err)
		return
	}
	created, err := h.svc.CreateUser(r.Context(), user)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, created)
}

// GetUser handles GET /internal/users/{user_id}.
func (h *UserDataHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, user)
}

// DeleteUser handles DELETE /internal/users/{user_id}.
func (h *UserDataHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.svc.DeleteUser(r.Context(), userID); err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, map[string]int{"deleted": userID})
}

// History handles GET /internal/users/{user_id}/history.
func (h *UserDataHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	history, err := h.svc.History(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if history == nil {
		history = []recommend.Interaction{}
	}
	respondOK(w, r, http.StatusOK, history)
}

// RecordInteraction handles POST /internal/users/{user_id}/interactions.
func (h *UserDataHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var event userdata.InteractionEvent
	if err := decodeJSON(r, &event); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.svc.RecordInteraction(r.Context(), userID, event); err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, map[string]any{
		"user_id":    userID,
		"product_id": event.ProductID,
		"type":       event.Type,
	})
}

// IngestCatalog handles PUT /internal/catalog.
func (h *UserDataHandler) IngestCatalog(w http.ResponseWriter, r *http.Request) {
	var products []recommend.Product
	if err := decodeJSON(r, &products); err != nil {
		respondErr(w, r, err)
		return
	}
	if len(products) == 0 {
		respondErr(w, r, fmt.Errorf("%w: catalog must contain at least one product", errBadRequest))
		return
	}
	n, err := h.svc.IngestCatalog(r.Context(), products)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, map[string]int{"upserted": n})
}

// Catalog handles GET /internal/catalog.
func (h *UserDataHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if products == nil {
		products = []recommend.Product{}
	}
	respondOK(w, r, http.StatusOK, products)
}
