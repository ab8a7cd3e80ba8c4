// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/shelfwise/internal/gateway"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/recommend"
	"github.com/tomtom215/shelfwise/internal/userdata"
	"github.com/tomtom215/shelfwise/internal/validation"
)

// Error codes returned in the envelope.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// retryAfterSeconds is sent with every 503.
const retryAfterSeconds = "5"

// respondErr maps err to a status and error envelope.
//
//	ErrUnauthorized                     401
//	ErrUserNotFound, ErrProductNotFound 404
//	ErrUserExists                       409
//	validation and malformed input      400
//	ErrUpstreamUnavailable, overload    503 with Retry-After
//	anything else                       500, logged at error level
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)

	case errors.Is(err, errBadRequest), errors.Is(err, userdata.ErrDuplicateProduct):
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)

	case errors.Is(err, gateway.ErrUnauthorized):
		respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing or invalid API key", nil)

	case errors.Is(err, recommend.ErrUserNotFound):
		respondError(w, r, http.StatusNotFound, CodeNotFound, "User not found", nil)

	case errors.Is(err, userdata.ErrProductNotFound):
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Product not found", nil)

	case errors.Is(err, userdata.ErrUserExists):
		respondError(w, r, http.StatusConflict, CodeConflict, "User already exists", nil)

	case errors.Is(err, recommend.ErrUpstreamUnavailable),
		errors.Is(err, recommend.ErrOverloaded),
		errors.Is(err, recommend.ErrEmptyCatalog),
		errors.Is(err, context.DeadlineExceeded):
		logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Service unavailable")
		w.Header().Set("Retry-After", retryAfterSeconds)
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable,
			"Service temporarily unavailable", nil)

	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
	}
}
