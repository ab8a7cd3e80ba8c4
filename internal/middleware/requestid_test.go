// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/shelfwise/internal/logging"
)

// captureIDs returns a handler recording the ids found in the request context.
func captureIDs(requestID, correlationID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requestID = logging.RequestIDFromContext(r.Context())
		*correlationID = logging.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID_GeneratesNewIDs(t *testing.T) {
	var requestID, correlationID string
	handler := RequestID(captureIDs(&requestID, &correlationID))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	responseID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("response X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if requestID != responseID {
		t.Errorf("context request id %q != response header %q", requestID, responseID)
	}
	if correlationID == "" {
		t.Error("expected a correlation id in context")
	}
	if got := rec.Header().Get(logging.CorrelationIDHeader); got != correlationID {
		t.Errorf("response correlation id %q != context %q", got, correlationID)
	}
}

func TestRequestID_PreservesForwardedIDs(t *testing.T) {
	var requestID, correlationID string
	handler := RequestID(captureIDs(&requestID, &correlationID))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	req.Header.Set(logging.CorrelationIDHeader, "corr-456")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if requestID != "req-123" {
		t.Errorf("request id = %q, want req-123", requestID)
	}
	if correlationID != "corr-456" {
		t.Errorf("correlation id = %q, want corr-456", correlationID)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("response X-Request-ID = %q", got)
	}
}

func TestRequestID_ReplacesOversizedIDs(t *testing.T) {
	var requestID, correlationID string
	handler := RequestID(captureIDs(&requestID, &correlationID))

	long := strings.Repeat("x", 200)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, long)
	req.Header.Set(logging.CorrelationIDHeader, long)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if requestID == long || correlationID == long {
		t.Error("oversized ids should be replaced")
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	seen := make(map[string]bool)
	var requestID, correlationID string
	handler := RequestID(captureIDs(&requestID, &correlationID))

	for i := 0; i < 50; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		if seen[requestID] {
			t.Fatalf("duplicate request id %s", requestID)
		}
		seen[requestID] = true
	}
}
