// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package main is the entry point for the Porchlight server.
//
// Porchlight aggregates community context (dining, parks, schools, events and
// more) around a listing's ZIP code and serves it as ranked, cache-backed
// text blocks for marketing-copy generation.
//
// The server initializes in this order:
//
//  1. Configuration: layered defaults, YAML file, PORCHLIGHT_* env (Koanf v2)
//  2. Cache: BadgerDB (or in-memory for development)
//  3. Providers: geocoding, structured place search, generative knowledge
//  4. Engine: the context orchestrator wiring rotation, pooling and assembly
//  5. HTTP API: Chi router with rate limiting and Prometheus metrics
//  6. Supervision: suture tree running the API and Badger GC with restarts
//
// Shutdown on SIGINT/SIGTERM is graceful: the listener drains in-flight
// requests before the process exits.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/porchlight-labs/porchlight/internal/api"
	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/config"
	"github.com/porchlight-labs/porchlight/internal/engine"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/provider"
	"github.com/porchlight-labs/porchlight/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	logging.Info().
		Str("cache_backend", cfg.Cache.Backend).
		Str("preference", cfg.Providers.Preference).
		Bool("knowledge_enabled", cfg.Providers.Knowledge.BaseURL != "").
		Msg("Configuration loaded")

	// Cache tier. The engine degrades gracefully without one, but the
	// server always runs with a store; "memory" is for development.
	var store cache.Store
	var badgerStore *cache.Badger
	if cfg.Cache.Backend == "badger" {
		db, err := cache.OpenBadger(cfg.Cache.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Cache.Path).Msg("Failed to open cache database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing cache database")
			}
		}()
		badgerStore = cache.NewBadger(db, cfg.Cache.DefaultTTL)
		store = badgerStore
		logging.Info().Str("path", cfg.Cache.Path).Msg("Cache database opened")
	} else {
		store = cache.NewMemory(cfg.Cache.DefaultTTL)
		logging.Info().Msg("Using in-memory cache")
	}

	resolver := provider.NewGeocodeClient(provider.GeocodeConfig{
		BaseURL:           cfg.Providers.Geocode.BaseURL,
		APIKey:            cfg.Providers.Geocode.APIKey,
		Timeout:           cfg.Providers.Geocode.Timeout,
		RequestsPerSecond: cfg.Providers.Geocode.RequestsPerSecond,
	})

	var search provider.SearchClient
	if cfg.Providers.Structured.BaseURL != "" {
		search = provider.NewStructuredClient(provider.StructuredConfig{
			BaseURL:           cfg.Providers.Structured.BaseURL,
			APIKey:            cfg.Providers.Structured.APIKey,
			Timeout:           cfg.Providers.Structured.Timeout,
			MaxRetries:        cfg.Providers.Structured.MaxRetries,
			RequestsPerSecond: cfg.Providers.Structured.RequestsPerSecond,
		})
	}

	var knowledge provider.KnowledgeClient
	if cfg.Providers.Knowledge.BaseURL != "" {
		knowledge = provider.NewKnowledgeClient(provider.KnowledgeConfig{
			BaseURL:           cfg.Providers.Knowledge.BaseURL,
			APIKey:            cfg.Providers.Knowledge.APIKey,
			Model:             cfg.Providers.Knowledge.Model,
			Timeout:           cfg.Providers.Knowledge.Timeout,
			RequestsPerSecond: cfg.Providers.Knowledge.RequestsPerSecond,
		})
	}

	eng := engine.New(store, resolver, search, knowledge, engine.Config{
		CategoriesPerTurn:       cfg.Engine.CategoriesPerTurn,
		MaxConcurrentCategories: cfg.Engine.MaxConcurrentCategories,
		PayloadTTL:              cfg.Engine.PayloadTTL,
		SearchCallBudget:        cfg.Engine.SearchCallBudget,
		PoolStalenessWindow:     cfg.Engine.PoolStalenessWindow,
		CycleRefreshThreshold:   cfg.Engine.CycleRefreshThreshold,
		Preference:              provider.Preference(cfg.Providers.Preference),
	})

	handler := api.NewHandler(eng)
	router := api.NewRouter(handler, api.RouterConfig{RateLimit: cfg.Server.RateLimit})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	if badgerStore != nil {
		tree.AddCacheService(supervisor.NewBadgerGCService(badgerStore, cfg.Cache.GCInterval))
	}
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting Porchlight")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree exited")
	}

	logging.Info().Msg("Shutdown complete")
}
