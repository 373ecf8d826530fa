// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package config loads Porchlight's layered configuration: struct defaults,
// then an optional YAML file, then PORCHLIGHT_-prefixed environment
// variables, highest priority last.
package config

import (
	"fmt"
	"time"

	"github.com/porchlight-labs/porchlight/internal/provider"
)

// Config is the full server configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
	Cache     CacheConfig     `koanf:"cache"`
	Providers ProvidersConfig `koanf:"providers"`
	Engine    EngineConfig    `koanf:"engine"`
}

// LogConfig configures the zerolog facade.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is requests per client IP per minute. Zero disables.
	RateLimit int `koanf:"rate_limit"`
}

// CacheConfig configures the cache store.
type CacheConfig struct {
	// Backend selects "badger" or "memory".
	Backend string `koanf:"backend"`

	// Path is the Badger data directory. Empty runs Badger in memory.
	Path string `koanf:"path"`

	// DefaultTTL applies to Set calls without an explicit TTL.
	DefaultTTL time.Duration `koanf:"default_ttl"`

	// GCInterval is how often the Badger value-log GC runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// ProviderEndpoint configures one upstream HTTP provider.
type ProviderEndpoint struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Model             string        `koanf:"model"`
}

// ProvidersConfig configures the provider branches and the geocoder.
type ProvidersConfig struct {
	// Preference selects which branch the router tries first:
	// "structured" or "knowledge".
	Preference string `koanf:"preference"`

	Structured ProviderEndpoint `koanf:"structured"`
	Knowledge  ProviderEndpoint `koanf:"knowledge"`
	Geocode    ProviderEndpoint `koanf:"geocode"`
}

// EngineConfig tunes the context orchestrator.
type EngineConfig struct {
	CategoriesPerTurn       int           `koanf:"categories_per_turn"`
	MaxConcurrentCategories int           `koanf:"max_concurrent_categories"`
	PayloadTTL              time.Duration `koanf:"payload_ttl"`
	SearchCallBudget        int           `koanf:"search_call_budget"`
	PoolStalenessWindow     time.Duration `koanf:"pool_staleness_window"`
	CycleRefreshThreshold   int           `koanf:"cycle_refresh_threshold"`
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       60,
		},
		Cache: CacheConfig{
			Backend:    "badger",
			Path:       "/data/porchlight",
			DefaultTTL: 24 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
		Providers: ProvidersConfig{
			Preference: string(provider.PreferStructured),
			Structured: ProviderEndpoint{
				Timeout:           10 * time.Second,
				MaxRetries:        3,
				RequestsPerSecond: 10,
			},
			Knowledge: ProviderEndpoint{
				Timeout:    30 * time.Second,
				MaxRetries: 2,
			},
			Geocode: ProviderEndpoint{
				Timeout: 5 * time.Second,
			},
		},
		Engine: EngineConfig{
			CategoriesPerTurn:       3,
			MaxConcurrentCategories: 4,
			PayloadTTL:              24 * time.Hour,
			SearchCallBudget:        24,
			PoolStalenessWindow:     14 * 24 * time.Hour,
			CycleRefreshThreshold:   2,
		},
	}
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Cache.Backend != "badger" && c.Cache.Backend != "memory" {
		return fmt.Errorf("cache.backend %q must be badger or memory", c.Cache.Backend)
	}
	if !provider.Preference(c.Providers.Preference).Valid() {
		return fmt.Errorf("providers.preference %q must be structured or knowledge", c.Providers.Preference)
	}
	if c.Providers.Structured.BaseURL == "" && c.Providers.Knowledge.BaseURL == "" {
		return fmt.Errorf("at least one of providers.structured.base_url or providers.knowledge.base_url is required")
	}
	if c.Providers.Geocode.BaseURL == "" {
		return fmt.Errorf("providers.geocode.base_url is required")
	}
	if c.Engine.CategoriesPerTurn < 1 {
		return fmt.Errorf("engine.categories_per_turn must be at least 1")
	}
	if c.Engine.SearchCallBudget < 1 {
		return fmt.Errorf("engine.search_call_budget must be at least 1")
	}
	return nil
}
