// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package provider

import (
	"bytes"
	"context"
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

// KnowledgeConfig configures the generative knowledge-query client.
type KnowledgeConfig struct {
	BaseURL string
	APIKey  string

	// Model names the generative model the provider should use.
	Model string

	// Timeout bounds each call. Generative answers are slow; the default is
	// generous compared to the structured client.
	Timeout time.Duration

	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
}

// HTTPKnowledgeClient talks to the generative knowledge provider: a prompt
// plus a JSON schema in, schema-conformant JSON out.
type HTTPKnowledgeClient struct {
	cfg     KnowledgeConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewKnowledgeClient creates a knowledge provider client.
func NewKnowledgeClient(cfg KnowledgeConfig) *HTTPKnowledgeClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &HTTPKnowledgeClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
	}
}

// knowledgeRequest is the provider wire format.
type knowledgeRequest struct {
	Model          string         `json:"model"`
	Prompt         string         `json:"prompt"`
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
}

// knowledgeResponse wraps the schema-conformant answer.
type knowledgeResponse struct {
	Data json.RawMessage `json:"data"`
}

// Query implements KnowledgeClient.
func (c *HTTPKnowledgeClient) Query(ctx context.Context, prompt string, schema map[string]any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(knowledgeRequest{
		Model:          c.cfg.Model,
		Prompt:         prompt,
		ResponseSchema: schema,
	})
	if err != nil {
		return fmt.Errorf("marshal knowledge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/knowledge:query", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ProviderLatency.WithLabelValues("knowledge", "query").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("knowledge", "query", "error").Inc()
		return community.NewDependencyError("knowledge", "query", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues("knowledge", "query", "error").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return community.NewDependencyError("knowledge", "query",
			fmt.Errorf("status %d: %s", resp.StatusCode, errBody))
	}

	var wrapped knowledgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wrapped); err != nil {
		metrics.ProviderRequests.WithLabelValues("knowledge", "query", "error").Inc()
		return community.NewDependencyError("knowledge", "query", fmt.Errorf("decode response: %w", err))
	}
	if len(wrapped.Data) == 0 || string(wrapped.Data) == "null" {
		metrics.ProviderRequests.WithLabelValues("knowledge", "query", "empty").Inc()
		logging.Ctx(ctx).Warn().Msg("knowledge provider returned empty data")
		return community.NewDependencyError("knowledge", "query", fmt.Errorf("empty answer"))
	}

	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		metrics.ProviderRequests.WithLabelValues("knowledge", "query", "error").Inc()
		return community.NewDependencyError("knowledge", "query", fmt.Errorf("malformed answer: %w", err))
	}

	metrics.ProviderRequests.WithLabelValues("knowledge", "query", "ok").Inc()
	return nil
}
