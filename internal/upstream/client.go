// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

/*
Package upstream holds the HTTP clients the services use to reach each other.

Every call is bounded by a timeout, guarded by a per-collaborator circuit
breaker and forwards the caller's correlation id. Failures are folded into
the recommend error values so callers never see transport details:

  - 404 becomes recommend.ErrUserNotFound (or unavailable for the catalog)
  - timeouts, 408, 429, 502, 503, 504, a SERVICE_UNAVAILABLE envelope,
    malformed bodies and an open breaker become recommend.ErrUpstreamUnavailable
  - any other error status (a 500 INTERNAL_ERROR from a data fault) becomes
    ErrUpstreamFailed, which is not retryable
*/
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/metrics"
	"github.com/tomtom215/shelfwise/internal/recommend"
)

const (
	// maxErrorBodySize limits how much of a failed response is logged.
	maxErrorBodySize = 1024

	// maxBodySize limits successful response bodies.
	maxBodySize = 32 << 20
)

// codeServiceUnavailable is the envelope code of a retryable refusal.
const codeServiceUnavailable = "SERVICE_UNAVAILABLE"

// errNotFound marks a 404 from the collaborator.
var errNotFound = errors.New("not found")

// ErrUpstreamFailed reports that the collaborator answered with a fault of
// its own. Callers must not retry it or serve a stale copy in its place.
var ErrUpstreamFailed = errors.New("upstream failed")

// envelope mirrors the API response wrapper the services emit.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls one collaborator service.
type Client struct {
	name    string
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *breaker
}

// NewClient creates a client for the service at baseURL. name labels the
// breaker and the upstream metrics.
func NewClient(name, baseURL string, timeout time.Duration, breakerCfg BreakerConfig) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &http.Client{
			Timeout: timeout,
		},
		breaker: newBreaker(name, breakerCfg),
	}
}

// Name returns the collaborator name.
func (c *Client) Name() string {
	return c.name
}

// BreakerState reports the circuit state for health checks.
func (c *Client) BreakerState() string {
	return c.breaker.state()
}

// getJSON fetches path and decodes the envelope's data into T. A 404 is
// reported as notFound.
func getJSON[T any](ctx context.Context, c *Client, path string, query url.Values, notFound error) (T, error) {
	var zero T

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, rejected, err := c.breaker.execute(func() ([]byte, error) {
		return c.do(reqCtx, path, query)
	})
	elapsed := time.Since(start)

	switch {
	case rejected:
		metrics.RecordUpstream(c.name, "rejected", elapsed)
		return zero, fmt.Errorf("%s: circuit %s: %w", c.name, c.breaker.state(), recommend.ErrUpstreamUnavailable)
	case errors.Is(err, errNotFound):
		metrics.RecordUpstream(c.name, "not_found", elapsed)
		return zero, fmt.Errorf("%s %s: %w", c.name, path, notFound)
	case errors.Is(err, ErrUpstreamFailed):
		metrics.RecordUpstream(c.name, "fault", elapsed)
		logging.Ctx(ctx).Error().Err(err).Str("upstream", c.name).Str("path", path).
			Msg("Upstream reported a fault")
		return zero, fmt.Errorf("%s %s: %w", c.name, path, err)
	case err != nil:
		metrics.RecordUpstream(c.name, "failure", elapsed)
		logging.Ctx(ctx).Warn().Err(err).Str("upstream", c.name).Str("path", path).
			Dur("elapsed", elapsed).Msg("Upstream call failed")
		return zero, fmt.Errorf("%s %s: %w: %w", c.name, path, recommend.ErrUpstreamUnavailable, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		metrics.RecordUpstream(c.name, "failure", elapsed)
		return zero, fmt.Errorf("%s %s: decode data: %w: %w", c.name, path, recommend.ErrUpstreamUnavailable, err)
	}
	metrics.RecordUpstream(c.name, "success", elapsed)
	return v, nil
}

// do performs one GET and returns the envelope's raw data.
func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(logging.CorrelationIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, errNotFound
	case resp.StatusCode != http.StatusOK:
		body := readBodyForError(resp.Body)
		if retryable(resp.StatusCode, body) {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamFailed, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		msg := "unknown error"
		if env.Error != nil {
			msg = env.Error.Code + ": " + env.Error.Message
		}
		return nil, fmt.Errorf("request failed: %s", msg)
	}
	return env.Data, nil
}

// retryable reports whether an error answer means the collaborator is
// temporarily unable to serve, as opposed to a fault in its data or code.
func retryable(status int, body []byte) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	var env envelope
	return json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Code == codeServiceUnavailable
}

// readBodyForError reads at most maxErrorBodySize bytes of a failed response.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
