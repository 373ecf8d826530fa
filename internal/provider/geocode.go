// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// geocodeCacheTTL bounds how long a resolved location is reused before the
// provider is asked again. ZIP geography is effectively static, so this is
// generous.
const geocodeCacheTTL = 7 * 24 * time.Hour

// GeocodeConfig configures the geocoding client.
type GeocodeConfig struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each HTTP call.
	Timeout time.Duration

	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
}

// GeocodeClient resolves ZIP codes and free-form queries to locations via
// an HTTP geocoding provider. Resolutions are memoized in process: the same
// ZIP is looked up at most once per cache window regardless of request volume.
type GeocodeClient struct {
	cfg     GeocodeConfig
	client  *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	cache map[string]geocodeEntry
}

type geocodeEntry struct {
	location *community.Location
	at       time.Time
}

// NewGeocodeClient creates a geocoding client.
func NewGeocodeClient(cfg GeocodeConfig) *GeocodeClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &GeocodeClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		cache:   make(map[string]geocodeEntry),
	}
}

// geocodeResponse is the provider wire format for one resolution.
type geocodeResponse struct {
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	ZIP       string  `json:"zip"`
}

// Resolve implements LocationResolver. A provider 404 maps to nil, nil:
// the input names no known place and the caller must treat that as terminal.
// Unresolvable inputs are cached too, so a mistyped ZIP does not hammer the
// provider on every retry.
func (c *GeocodeClient) Resolve(ctx context.Context, zipOrQuery string) (*community.Location, error) {
	if cached, ok := c.lookup(zipOrQuery); ok {
		return cached, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	loc, err := c.fetch(ctx, zipOrQuery)
	metrics.ProviderLatency.WithLabelValues("geocode", "resolve").Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.ProviderRequests.WithLabelValues("geocode", "resolve", "error").Inc()
		return nil, community.NewDependencyError("geocode", "resolve", err)
	case loc == nil:
		metrics.ProviderRequests.WithLabelValues("geocode", "resolve", "not_found").Inc()
	default:
		metrics.ProviderRequests.WithLabelValues("geocode", "resolve", "ok").Inc()
	}

	c.remember(zipOrQuery, loc)
	return loc, nil
}

func (c *GeocodeClient) lookup(key string) (*community.Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok || time.Since(entry.at) > geocodeCacheTTL {
		return nil, false
	}
	return entry.location, true
}

func (c *GeocodeClient) remember(key string, loc *community.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = geocodeEntry{location: loc, at: time.Now()}
}

func (c *GeocodeClient) fetch(ctx context.Context, zipOrQuery string) (*community.Location, error) {
	endpoint := c.cfg.BaseURL + "/v1/geocode?q=" + url.QueryEscape(zipOrQuery)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode provider request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("geocode provider status %d: %s", resp.StatusCode, errBody)
	}

	var wire geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if wire.City == "" {
		return nil, fmt.Errorf("geocode response missing city")
	}

	return &community.Location{
		City:      wire.City,
		State:     wire.State,
		Latitude:  wire.Latitude,
		Longitude: wire.Longitude,
		ZIP:       wire.ZIP,
	}, nil
}
