// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/porchlight-labs/porchlight/internal/community"
)

var anchor = community.Location{City: "Austin", State: "TX", Latitude: 30.27, Longitude: -97.74, ZIP: "78701"}

func TestStructuredSearchDedupsAcrossQueries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		// Both queries return the same place plus one unique result.
		resp := searchResponse{Places: []ScoredPlace{
			{ID: "shared", Name: "Shared Spot", Rating: 4.5, ReviewCount: 200},
			{ID: "unique-" + req.Query, Name: "Unique " + req.Query, Rating: 4.0, ReviewCount: 80},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewStructuredClient(StructuredConfig{BaseURL: srv.URL, APIKey: "test"})
	places, err := c.Search(context.Background(), []string{"q1", "q2"}, anchor, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	// 2 queries x 2 places, one shared: 3 unique results.
	if len(places) != 3 {
		t.Fatalf("expected 3 deduplicated places, got %d", len(places))
	}

	seen := make(map[string]bool)
	for _, p := range places {
		if seen[p.ID] {
			t.Errorf("duplicate place %q in results", p.ID)
		}
		seen[p.ID] = true
		if p.Query == "" {
			t.Errorf("place %q missing source query", p.ID)
		}
	}
}

func TestStructuredSearchRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(searchResponse{Places: []ScoredPlace{{ID: "a", Name: "A"}}})
	}))
	defer srv.Close()

	c := NewStructuredClient(StructuredConfig{BaseURL: srv.URL, MaxRetries: 2})
	places, err := c.Search(context.Background(), []string{"q"}, anchor, 5)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(places) != 1 {
		t.Fatalf("expected 1 place after retry, got %d", len(places))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestStructuredSearchSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewStructuredClient(StructuredConfig{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), []string{"q"}, anchor, 5)
	if err == nil {
		t.Fatal("expected error on HTTP 500")
	}
	if !community.IsDependency(err) {
		t.Errorf("expected DependencyError, got %T: %v", err, err)
	}
}

func TestStructuredGetDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/places/known":
			json.NewEncoder(w).Encode(PlaceDetails{
				ID: "known", Name: "Known Place", Rating: 4.6, ReviewCount: 321,
				Address: "1 Main St", Summary: "A local favorite.",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewStructuredClient(StructuredConfig{BaseURL: srv.URL})
	ctx := context.Background()

	details, err := c.GetDetails(ctx, "known")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details == nil || details.Summary != "A local favorite." {
		t.Errorf("unexpected details: %+v", details)
	}

	// Provider miss maps to nil, nil: the place is silently dropped.
	missing, err := c.GetDetails(ctx, "ghost")
	if err != nil {
		t.Fatalf("expected nil error for missing place, got %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil details for missing place, got %+v", missing)
	}
}

func TestStructuredTimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	c := NewStructuredClient(StructuredConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if _, err := c.Search(context.Background(), []string{"q"}, anchor, 5); err == nil {
		t.Fatal("expected timeout to surface as an error")
	}
}

func TestKnowledgeQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req knowledgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request: %v", err)
		}
		if req.Prompt == "" {
			t.Error("expected prompt in request")
		}
		if _, ok := req.ResponseSchema["type"]; !ok {
			t.Error("expected schema in request")
		}
		w.Write([]byte(`{"data": {"answer": "hill country views"}}`))
	}))
	defer srv.Close()

	c := NewKnowledgeClient(KnowledgeConfig{BaseURL: srv.URL, Model: "pl-community-1"})

	var out struct {
		Answer string `json:"answer"`
	}
	schema := map[string]any{"type": "object"}
	if err := c.Query(context.Background(), "describe the area", schema, &out); err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.Answer != "hill country views" {
		t.Errorf("unexpected answer %q", out.Answer)
	}
}

func TestKnowledgeQueryEmptyDataIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": null}`))
	}))
	defer srv.Close()

	c := NewKnowledgeClient(KnowledgeConfig{BaseURL: srv.URL})

	var out map[string]any
	err := c.Query(context.Background(), "anything", nil, &out)
	if err == nil {
		t.Fatal("expected empty answer to be an error")
	}
	if !community.IsDependency(err) {
		t.Errorf("expected DependencyError, got %v", err)
	}
}

func TestGeocodeResolveMemoizes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("q"); got != "78701" {
			t.Errorf("expected query 78701, got %q", got)
		}
		json.NewEncoder(w).Encode(geocodeResponse{
			City: "Austin", State: "TX", Latitude: 30.27, Longitude: -97.74, ZIP: "78701",
		})
	}))
	defer srv.Close()

	c := NewGeocodeClient(GeocodeConfig{BaseURL: srv.URL, APIKey: "test"})

	for i := 0; i < 3; i++ {
		loc, err := c.Resolve(context.Background(), "78701")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if loc == nil || loc.City != "Austin" || loc.State != "TX" {
			t.Fatalf("resolve %d: unexpected location %+v", i, loc)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 provider call across repeated resolutions, got %d", calls.Load())
	}
}

func TestGeocodeResolveNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewGeocodeClient(GeocodeConfig{BaseURL: srv.URL})

	for i := 0; i < 2; i++ {
		loc, err := c.Resolve(context.Background(), "00000")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if loc != nil {
			t.Fatalf("resolve %d: expected nil location for unknown input, got %+v", i, loc)
		}
	}

	// The miss is cached too.
	if calls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", calls.Load())
	}
}

func TestGeocodeResolveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewGeocodeClient(GeocodeConfig{BaseURL: srv.URL})

	_, err := c.Resolve(context.Background(), "78701")
	if err == nil {
		t.Fatal("expected error on provider failure")
	}
	if !community.IsDependency(err) {
		t.Errorf("expected DependencyError, got %v", err)
	}
}
