package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/marketgraph/cascadeviz/pkg/cache"
)

// testAPI is a minimal stand-in for the prediction backend. Handlers can be
// overridden per test; connection counts are tracked for cache assertions.
type testAPI struct {
	mux          *http.ServeMux
	searchCalls  atomic.Int64
	connectCalls atomic.Int64
}

func newTestAPI(t *testing.T) (*testAPI, *httptest.Server) {
	t.Helper()
	api := &testAPI{mux: http.NewServeMux()}

	api.mux.HandleFunc("/entities/search", func(w http.ResponseWriter, r *http.Request) {
		api.searchCalls.Add(1)
		writeJSON(t, w, map[string]any{
			"query": r.URL.Query().Get("q"),
			"results": []map[string]any{
				{"id": "AAPL", "name": "Apple", "type": "company", "sector": "technology"},
				{"id": "XLK", "name": "Tech Select", "type": "etf", "sector": "N/A"},
				{"id": "technology", "name": "Technology", "type": "sector", "sector": "N/A"},
			},
		})
	})
	api.mux.HandleFunc("/entity/", func(w http.ResponseWriter, r *http.Request) {
		api.connectCalls.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/entity/"), "/connections")
		switch id {
		case "AAPL":
			writeJSON(t, w, map[string]any{
				"entity": id,
				"outgoing": []map[string]any{
					{"target": "technology", "relationship": "in_sector", "strength": 0.9, "delay_days": 0, "confidence": 0.95},
					{"target": "GONE", "relationship": "competes_with", "strength": 0.5, "delay_days": 1, "confidence": 0.7},
				},
				"incoming": []map[string]any{
					{"source": "XLK", "relationship": "in_index", "strength": 0.6, "delay_days": 0, "confidence": 0.8},
				},
			})
		case "XLK":
			writeJSON(t, w, map[string]any{
				"entity": id,
				"outgoing": []map[string]any{
					{"target": "AAPL", "relationship": "in_index", "strength": 0.6, "delay_days": 0, "confidence": 0.8},
					// duplicate of the same edge; must be deduplicated
					{"target": "AAPL", "relationship": "in_index", "strength": 0.6, "delay_days": 0, "confidence": 0.8},
				},
				"incoming": []map[string]any{},
			})
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})

	srv := httptest.NewServer(api.mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestSearchEntities(t *testing.T) {
	_, srv := newTestAPI(t)
	c := New(srv.URL)

	entities, err := c.SearchEntities(context.Background(), "tech", 10)
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("got %d entities", len(entities))
	}
	if entities[1].Sector != "" {
		t.Errorf("N/A sector not normalized: %q", entities[1].Sector)
	}
}

func TestSearchEntitiesDropsMalformed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/entities/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"results": []map[string]any{
				{"id": "AAPL", "name": "Apple", "type": "company"},
				{"id": "BAD", "name": "Bad", "type": "spaceship"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	entities, err := New(srv.URL).SearchEntities(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(entities) != 1 || entities[0].ID != "AAPL" {
		t.Errorf("entities = %+v, want only AAPL", entities)
	}
}

func TestConnectionsFillsEndpoints(t *testing.T) {
	_, srv := newTestAPI(t)
	c := New(srv.URL)

	outgoing, incoming, err := c.Connections(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Connections: %v", err)
	}
	if len(outgoing) != 2 {
		t.Fatalf("outgoing = %+v", outgoing)
	}
	if outgoing[0].Source != "AAPL" || outgoing[0].Target != "technology" {
		t.Errorf("outgoing endpoints = %s -> %s", outgoing[0].Source, outgoing[0].Target)
	}
	if len(incoming) != 1 || incoming[0].Source != "XLK" || incoming[0].Target != "AAPL" {
		t.Errorf("incoming = %+v", incoming)
	}
}

func TestPredict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.EntityID != "AAPL" || req.SurprisePercent != -8 {
			t.Errorf("request = %+v", req)
		}
		writeJSON(t, w, map[string]any{
			"trigger":       map[string]any{"entity": "AAPL", "magnitude_percent": -8, "event_type": "earnings"},
			"horizon_days":  14,
			"total_effects": 2,
			"timeline": map[string]any{
				"Day 1": []map[string]any{
					{"entity": "XLK", "magnitude_percent": -2.1, "magnitude_range": []float64{-3, -1}, "day": 1, "confidence": 0.8, "order": 1},
				},
				"Day 2-3": []map[string]any{
					{"entity": "MSFT", "magnitude_percent": -0.9, "magnitude_range": []float64{-1.5, -0.4}, "day": 2.5, "confidence": 0.55, "order": 2, "cause_path": []string{"XLK", "MSFT"}},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := New(srv.URL).Predict(context.Background(), PredictRequest{
		EntityID: "AAPL", SurprisePercent: -8, HorizonDays: 14,
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	effects := p.Effects()
	if len(effects) != 2 || effects[0].Entity != "XLK" || effects[1].CausePath[1] != "MSFT" {
		t.Errorf("effects = %+v", effects)
	}
}

func TestExplain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/explain", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"trigger": map[string]any{"entity": "AAPL", "magnitude_percent": -8, "event_type": "earnings"},
			"summary": map[string]any{"total_effects": 5, "first_order": 2, "second_order": 2, "third_order": 1},
			"top_effects": []map[string]any{
				{
					"effect":  map[string]any{"entity": "XLK", "magnitude_percent": -2.1, "confidence": 0.8, "order": 1},
					"trigger": map[string]any{"entity": "AAPL", "magnitude_percent": -8, "event_type": "earnings"},
					"steps": []map[string]any{
						{"from": "AAPL", "to": "XLK", "relationship": "in_index", "strength": 0.6, "delay_days": 0, "confidence": 0.8, "evidence": []string{"index weight 7.2%"}},
					},
					"narrative": "AAPL missed earnings, dragging XLK.",
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	exp, err := New(srv.URL).Explain(context.Background(), PredictRequest{EntityID: "AAPL", SurprisePercent: -8})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if exp.Summary.TotalEffects != 5 || len(exp.TopEffects) != 1 {
		t.Errorf("explanation = %+v", exp)
	}
	if got := exp.TopEffects[0].Steps[0].Evidence[0]; got != "index weight 7.2%" {
		t.Errorf("evidence = %q", got)
	}
}

func TestFetchGraphAggregatesAndCaches(t *testing.T) {
	api, srv := newTestAPI(t)
	gc := cache.New()
	c := New(srv.URL, WithCache(gc))

	entry, err := c.FetchGraph(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchGraph: %v", err)
	}
	if len(entry.Entities) != 3 {
		t.Fatalf("entities = %d", len(entry.Entities))
	}
	// AAPL->technology survives; AAPL->GONE is dangling; XLK->AAPL appears
	// once despite the duplicate; the failing "technology" entity is skipped.
	if len(entry.Links) != 2 {
		t.Fatalf("links = %+v", entry.Links)
	}
	keys := map[string]bool{}
	for _, l := range entry.Links {
		keys[l.Key()] = true
	}
	if !keys["AAPL-technology"] || !keys["XLK-AAPL"] {
		t.Errorf("link keys = %v", keys)
	}

	// A fresh cache entry short-circuits the network.
	before := api.searchCalls.Load()
	if _, err := c.FetchGraph(context.Background(), false); err != nil {
		t.Fatalf("cached FetchGraph: %v", err)
	}
	if api.searchCalls.Load() != before {
		t.Error("cached fetch hit the network")
	}

	// force bypasses the cache.
	if _, err := c.FetchGraph(context.Background(), true); err != nil {
		t.Fatalf("forced FetchGraph: %v", err)
	}
	if api.searchCalls.Load() != before+1 {
		t.Error("forced fetch did not hit the network")
	}
}

func TestFetchGraphWithoutCache(t *testing.T) {
	_, srv := newTestAPI(t)
	entry, err := New(srv.URL).FetchGraph(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchGraph: %v", err)
	}
	if entry.FetchedAt.IsZero() || time.Since(entry.FetchedAt) > time.Minute {
		t.Errorf("FetchedAt = %v", entry.FetchedAt)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).SearchEntities(context.Background(), "", 10)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable || !statusErr.Retryable() {
		t.Errorf("statusErr = %+v", statusErr)
	}

	notFound := &StatusError{Code: http.StatusNotFound}
	if notFound.Retryable() {
		t.Error("404 reported retryable")
	}
}
