// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package api

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"
)

// HealthCheck reports one dependency's health. A nil error is healthy.
type HealthCheck func(ctx context.Context) error

// healthCheckTimeout bounds all checks of one request.
const healthCheckTimeout = 2 * time.Second

// HealthHandler serves GET /health.
type HealthHandler struct {
	service   string
	startTime time.Time
	checks    map[string]HealthCheck
}

// NewHealthHandler creates a health handler for service.
func NewHealthHandler(service string, checks map[string]HealthCheck) *HealthHandler {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &HealthHandler{service: service, startTime: time.Now(), checks: checks}
}

type healthStatus struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Uptime  float64           `json:"uptime_seconds"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health returns 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := slices.Sorted(maps.Keys(h.checks))

	status := healthStatus{
		Status:  "healthy",
		Service: h.service,
		Uptime:  time.Since(h.startTime).Seconds(),
		Checks:  make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status.Status = "degraded"
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, &Response{
		Success:  code == http.StatusOK,
		Data:     status,
		Metadata: metadataFor(r),
	})
}

// BreakerReporter is satisfied by the upstream clients.
type BreakerReporter interface {
	Name() string
	BreakerState() string
}

// BreakerCheck fails while the collaborator's circuit is open.
func BreakerCheck(c BreakerReporter) HealthCheck {
	return func(context.Context) error {
		if state := c.BreakerState(); state == "open" {
			return fmt.Errorf("%s circuit breaker is %s", c.Name(), state)
		}
		return nil
	}
}
