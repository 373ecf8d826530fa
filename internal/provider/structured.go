// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// StructuredConfig configures the structured places-search client.
type StructuredConfig struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each HTTP call. A timed-out call is indistinguishable
	// from an error for routing purposes.
	Timeout time.Duration

	// MaxRetries bounds retries on HTTP 429 (exponential backoff: 1s, 2s, 4s...).
	MaxRetries int

	// RequestsPerSecond throttles outbound calls to respect provider limits.
	// Zero disables throttling.
	RequestsPerSecond float64
}

// StructuredClient talks to the structured places-search provider.
type StructuredClient struct {
	cfg     StructuredConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewStructuredClient creates a structured provider client.
func NewStructuredClient(cfg StructuredConfig) *StructuredClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &StructuredClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
	}
}

// searchRequest is the provider wire format for one search call.
type searchRequest struct {
	Query      string  `json:"query"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	MaxResults int     `json:"max_results"`
}

// searchResponse is the provider wire format for search results.
type searchResponse struct {
	Places []ScoredPlace `json:"places"`
}

// Search implements SearchClient. Queries are issued sequentially (the
// caller parallelizes across categories, not within one) and results are
// deduplicated by place identity, preserving the first-surfacing query on
// each result.
func (c *StructuredClient) Search(ctx context.Context, queries []string, anchor community.Location, maxResults int) ([]ScoredPlace, error) {
	var out []ScoredPlace
	seen := make(map[string]int) // identity -> index into out

	for _, query := range queries {
		resp, err := c.searchOne(ctx, query, anchor, maxResults)
		if err != nil {
			return nil, community.NewDependencyError("structured", "search", err)
		}
		for _, place := range resp {
			place.Query = query
			identity := place.ID
			if identity == "" {
				identity = community.NormalizeIdentity(place.Name, place.Address)
			}
			if _, dup := seen[identity]; dup {
				continue
			}
			seen[identity] = len(out)
			out = append(out, place)
		}
	}
	return out, nil
}

func (c *StructuredClient) searchOne(ctx context.Context, query string, anchor community.Location, maxResults int) ([]ScoredPlace, error) {
	body, err := json.Marshal(searchRequest{
		Query:      query,
		Latitude:   anchor.Latitude,
		Longitude:  anchor.Longitude,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/v1/places:search", body, &resp); err != nil {
		return nil, err
	}
	return resp.Places, nil
}

// GetDetails implements SearchClient. A 404 maps to nil, nil: the place has
// no detail record and is dropped rather than rendered empty.
func (c *StructuredClient) GetDetails(ctx context.Context, placeID string) (*PlaceDetails, error) {
	var details PlaceDetails
	err := c.do(ctx, http.MethodGet, "/v1/places/"+placeID, nil, &details)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, community.NewDependencyError("structured", "details", err)
	}
	return &details, nil
}

// notFoundError marks a 404 so GetDetails can map it to a silent drop.
type notFoundError struct{ path string }

func (e *notFoundError) Error() string {
	return "not found: " + e.path
}

func isNotFound(err error) bool {
	var nf *notFoundError
	return errors.As(err, &nf)
}

// do executes one HTTP call with rate limiting, 429 backoff and JSON decode.
func (c *StructuredClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	operation := "search"
	if method == http.MethodGet {
		operation = "details"
	}

	backoff := time.Second
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		start := time.Now()
		status, err := c.once(ctx, method, path, body, out)
		metrics.ProviderLatency.WithLabelValues("structured", operation).Observe(time.Since(start).Seconds())

		switch {
		case err == nil:
			metrics.ProviderRequests.WithLabelValues("structured", operation, "ok").Inc()
			return nil
		case status == http.StatusTooManyRequests && attempt < c.cfg.MaxRetries:
			metrics.ProviderRequests.WithLabelValues("structured", operation, "rate_limited").Inc()
			logging.Ctx(ctx).Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("structured provider rate limited, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		default:
			metrics.ProviderRequests.WithLabelValues("structured", operation, "error").Inc()
			return err
		}
	}
}

// once performs a single HTTP round trip. Returns the status code alongside
// the error so the caller can special-case 429.
func (c *StructuredClient) once(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("structured provider request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, &notFoundError{path: path}
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, fmt.Errorf("structured provider rate limited")
	case resp.StatusCode != http.StatusOK:
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return resp.StatusCode, fmt.Errorf("structured provider status %d: %s", resp.StatusCode, errBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
