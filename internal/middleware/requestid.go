// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package middleware holds the HTTP middleware shared by all three services.
package middleware

import (
	"net/http"

	"github.com/tomtom215/shelfwise/internal/logging"
)

// RequestIDHeader carries the id of one HTTP request.
const RequestIDHeader = "X-Request-ID"

// RequestID gives every request an id and a correlation id.
//
// The request id is taken from X-Request-ID or generated. The correlation id
// is taken from X-Correlation-ID when an upstream service forwarded one, so
// that every hop of one client call logs the same value. Both are echoed in
// the response and stored in the context for logging.Ctx.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = logging.GenerateRequestID()
		}

		correlationID := r.Header.Get(logging.CorrelationIDHeader)
		if correlationID == "" || len(correlationID) > 128 {
			correlationID = logging.GenerateCorrelationID()
		}

		w.Header().Set(RequestIDHeader, requestID)
		w.Header().Set(logging.CorrelationIDHeader, correlationID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
