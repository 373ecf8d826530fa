// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/hydrate"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
	"github.com/porchlight-labs/porchlight/internal/planner"
	"github.com/porchlight-labs/porchlight/internal/pool"
	"github.com/porchlight-labs/porchlight/internal/provider"
	"github.com/porchlight-labs/porchlight/internal/rotation"
)

// DefaultCategoriesPerTurn is how many rotating categories a request serves
// when the caller does not pin one.
const DefaultCategoriesPerTurn = 3

// DefaultMaxConcurrentCategories bounds category fan-out per request.
const DefaultMaxConcurrentCategories = 4

// DefaultPayloadTTL bounds the top-level per-ZIP payload cache.
const DefaultPayloadTTL = 24 * time.Hour

// audienceDeltaTTL bounds the cached per-(zip, audience) delta blocks.
const audienceDeltaTTL = 24 * time.Hour

// Request is one context resolution request.
type Request struct {
	ZIP    string
	UserID string

	// Category pins the request to a single category, bypassing rotation.
	Category community.CategoryKey

	// AudienceSegments is the caller's configured audience list. One
	// segment is chosen round-robin per request and its delta blocks are
	// attached to the payload.
	AudienceSegments []string

	// ServiceAreas are caller-supplied neighborhood names merged into the
	// neighborhoods block.
	ServiceAreas []string

	// ForceRefresh drops the cached payload and per-category blocks before
	// resolving, forcing regeneration.
	ForceRefresh bool
}

// Config tunes the engine.
type Config struct {
	CategoriesPerTurn       int
	MaxConcurrentCategories int
	PayloadTTL              time.Duration
	SearchCallBudget        int
	PoolStalenessWindow     time.Duration
	CycleRefreshThreshold   int
	Preference              provider.Preference
}

// Engine is the context orchestrator.
type Engine struct {
	store     cache.Store
	resolver  provider.LocationResolver
	search    provider.SearchClient
	knowledge provider.KnowledgeClient
	scheduler *rotation.Scheduler
	audience  *rotation.AudienceRotator
	planner   *planner.Planner
	pools     *pool.Manager
	hydrator  *hydrate.Hydrator
	router    *provider.Router

	maxConcurrent int
	perTurn       int
	payloadTTL    time.Duration
	now           func() time.Time
}

// New wires the full pipeline. store may be nil; every tier degrades to
// fetching fresh. knowledge may be nil when no generative provider is
// configured, which disables the knowledge branch, seasonal sections, and
// the city description.
func New(store cache.Store, resolver provider.LocationResolver, search provider.SearchClient, knowledge provider.KnowledgeClient, cfg Config) *Engine {
	if cfg.CategoriesPerTurn <= 0 {
		cfg.CategoriesPerTurn = DefaultCategoriesPerTurn
	}
	if cfg.MaxConcurrentCategories <= 0 {
		cfg.MaxConcurrentCategories = DefaultMaxConcurrentCategories
	}
	if cfg.PayloadTTL <= 0 {
		cfg.PayloadTTL = DefaultPayloadTTL
	}
	if !cfg.Preference.Valid() {
		cfg.Preference = provider.PreferStructured
	}

	e := &Engine{
		store:     store,
		resolver:  resolver,
		search:    search,
		knowledge: knowledge,
		scheduler: rotation.NewScheduler(store, rotation.SchedulerConfig{RefreshThreshold: cfg.CycleRefreshThreshold}),
		audience:  rotation.NewAudienceRotator(store),
		planner:   planner.New(planner.WithBudget(cfg.SearchCallBudget)),
		pools:     pool.NewManager(store, pool.Config{StalenessWindow: cfg.PoolStalenessWindow}),
		hydrator:  hydrate.NewHydrator(store, hydrate.Config{Concurrency: cfg.MaxConcurrentCategories}),

		maxConcurrent: cfg.MaxConcurrentCategories,
		perTurn:       cfg.CategoriesPerTurn,
		payloadTTL:    cfg.PayloadTTL,
		now:           time.Now,
	}

	structuredBranch := e.structuredBranch
	if search == nil {
		structuredBranch = disabledBranch("structured")
	}
	knowledgeBranch := e.knowledgeBranch
	if knowledge == nil {
		knowledgeBranch = disabledBranch("knowledge")
	}
	e.router = provider.NewRouter(resolver, store, provider.RouterConfig{
		Preference: cfg.Preference,
		PayloadTTL: cfg.PayloadTTL,
	}, structuredBranch, knowledgeBranch)

	return e
}

// disabledBranch always fails, pushing the router straight to the other
// branch.
func disabledBranch(name string) provider.BranchFunc {
	return func(_ context.Context, _ community.Location, _ string, _ []community.CategoryKey) (*community.CommunityPayload, error) {
		return nil, community.NewDependencyError(name, "fetch", errors.New("provider not configured"))
	}
}

// ResolveContext is the engine entry point. It returns the full per-ZIP
// context payload, serving entirely from cache when warm. Dependency
// failures degrade (succeeded categories are returned, the rest omitted);
// only an unresolvable location or total provider failure is an error.
func (e *Engine) ResolveContext(ctx context.Context, req Request) (*community.ContextPayload, error) {
	start := e.now()
	payload, err := e.resolveContext(ctx, req)
	metrics.ContextDuration.Observe(e.now().Sub(start).Seconds())
	switch {
	case err == nil:
		metrics.ContextRequests.WithLabelValues("ok").Inc()
	case community.IsValidation(err):
		metrics.ContextRequests.WithLabelValues("invalid").Inc()
	default:
		metrics.ContextRequests.WithLabelValues("error").Inc()
	}
	return payload, err
}

func (e *Engine) resolveContext(ctx context.Context, req Request) (*community.ContextPayload, error) {
	zip := strings.TrimSpace(req.ZIP)
	if !validZIP(zip) {
		return nil, community.NewValidationError("zip", "must be a 5-digit ZIP code")
	}
	userID := req.UserID
	if userID == "" {
		userID = "anon:" + zip
	}

	if req.ForceRefresh {
		e.dropCached(ctx, zip)
	}

	var payload community.ContextPayload
	if cache.GetJSON(ctx, e.store, community.KeyCommunity(zip), &payload) {
		metrics.RecordCache("context", true)
		e.attachAudience(ctx, &payload, req, userID)
		return &payload, nil
	}
	metrics.RecordCache("context", false)

	categories := e.selectCategories(ctx, req, userID, zip)

	data, err := e.router.GetCommunityData(ctx, zip, "", categories)
	if err != nil {
		return nil, err
	}

	loc, rerr := e.resolver.Resolve(ctx, zip)
	if rerr != nil || loc == nil {
		// The router already resolved once, so this is unexpected; degrade
		// to the blocks that need no location.
		logging.Ctx(ctx).Warn().Err(rerr).Str("zip", zip).Msg("location unavailable for seasonal blocks")
	}

	payload = community.ContextPayload{
		ZIP:           zip,
		CategoryKeys:  categories,
		CommunityData: selectBlocks(data.Categories, categories),
		Neighborhoods: mergeServiceAreas(data.Neighborhoods, req.ServiceAreas),
		GeneratedAt:   e.now(),
		Source:        data.Source,
	}
	if loc != nil {
		payload.SeasonalSections = e.seasonalSections(ctx, *loc)
		payload.CityDescription = e.cityDescription(ctx, *loc)
	}

	cache.SetJSON(ctx, e.store, community.KeyCommunity(zip), payload, e.payloadTTL)

	e.attachAudience(ctx, &payload, req, userID)
	return &payload, nil
}

// selectCategories honors a pinned category, otherwise asks the rotation
// scheduler. A refresh signal from the scheduler drops cached blocks so the
// turn regenerates instead of serving cycle-old content.
func (e *Engine) selectCategories(ctx context.Context, req Request, userID, zip string) []community.CategoryKey {
	if req.Category != "" && req.Category.Valid() {
		return []community.CategoryKey{req.Category}
	}

	selected, shouldRefresh := e.scheduler.SelectCategories(ctx, userID, e.perTurn, community.RotatableCategories())
	if shouldRefresh {
		logging.Ctx(ctx).Info().Str("user_id", userID).Msg("rotation cycle threshold reached, regenerating base content")
		e.dropCached(ctx, zip)
	}
	return selected
}

// dropCached removes the per-ZIP payload and block caches so the next build
// regenerates. Pools and details survive: they have their own staleness.
func (e *Engine) dropCached(ctx context.Context, zip string) {
	if e.store == nil {
		return
	}
	e.store.Delete(ctx, community.KeyCommunity(zip))
	e.store.Delete(ctx, community.KeySeasonal(zip))
	e.store.Delete(ctx, community.KeyKnowledge(zip))
	for _, category := range community.AllCategories() {
		e.store.Delete(ctx, community.KeyCategory(zip, category))
	}
}

// attachAudience picks one segment round-robin and attaches its cached or
// freshly computed delta blocks. Audience work never fails the request.
func (e *Engine) attachAudience(ctx context.Context, payload *community.ContextPayload, req Request, userID string) {
	if len(req.AudienceSegments) == 0 {
		return
	}

	category := community.CategoryDining
	if len(payload.CategoryKeys) > 0 {
		category = payload.CategoryKeys[0]
	}
	segment := e.audience.Rotate(ctx, userID, category, req.AudienceSegments)
	if segment == "" {
		return
	}

	payload.AudienceSegment = segment
	payload.AudienceDeltas = e.audienceDeltas(ctx, payload.ZIP, segment, payload.CategoryKeys)
}

func validZIP(zip string) bool {
	if len(zip) != 5 {
		return false
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// selectBlocks filters a branch payload down to the selected categories.
// Categories the branch produced no block for (a failed build) are omitted;
// categories with zero admissible places carry the placeholder the branch
// assembled for them.
func selectBlocks(blocks map[community.CategoryKey]string, categories []community.CategoryKey) map[community.CategoryKey]string {
	out := make(map[community.CategoryKey]string, len(categories))
	for _, category := range categories {
		if block, ok := blocks[category]; ok && block != "" {
			out[category] = block
		}
	}
	return out
}

// mergeServiceAreas appends caller-supplied service area names to the
// neighborhoods block, skipping names already present.
func mergeServiceAreas(block string, serviceAreas []string) string {
	if len(serviceAreas) == 0 {
		return block
	}
	var extra []string
	for _, area := range serviceAreas {
		area = strings.TrimSpace(area)
		if area == "" || strings.Contains(block, area) {
			continue
		}
		extra = append(extra, "- "+area)
	}
	if len(extra) == 0 {
		return block
	}
	if block == "" || block == community.NoResultsPlaceholder {
		return strings.Join(extra, "\n")
	}
	return block + "\n" + strings.Join(extra, "\n")
}
