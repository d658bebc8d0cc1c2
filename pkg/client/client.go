// Package client consumes the cascade-prediction HTTP API: entity search,
// per-entity connections, cascade prediction, and chain explanation. The
// full-graph fetch aggregates one connections request per entity, feeds the
// shared graph cache, and collapses concurrent callers onto one flight.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/marketgraph/cascadeviz/pkg/cache"
	"github.com/marketgraph/cascadeviz/pkg/metrics"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// searchLimit is the limit used when an empty query enumerates the full
// entity set.
const searchLimit = 10000

// StatusError is a non-2xx API response. Server-side and transport-level
// failures are retryable; client-side request errors are not.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Code, e.Body)
}

// Retryable reports whether a manual retry can plausibly succeed.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client talks to one API base URL.
type Client struct {
	base  string
	http  *http.Client
	cache *cache.Cache
	group singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache attaches a graph cache that FetchGraph reads and writes.
func WithCache(gc *cache.Cache) Option {
	return func(c *Client) { c.cache = gc }
}

// New creates a client for the given base URL. Without WithCache, every
// FetchGraph hits the network.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: baseURL,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchEntities queries /entities/search. An empty query with a large
// limit enumerates every entity, which is how the full fetch starts.
func (c *Client) SearchEntities(ctx context.Context, q string, limit int) ([]model.Entity, error) {
	u := fmt.Sprintf("%s/entities/search?q=%s&limit=%s",
		c.base, url.QueryEscape(q), strconv.Itoa(limit))

	var resp struct {
		Query   string            `json:"query"`
		Results []json.RawMessage `json:"results"`
	}
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	// Fail closed per entry: malformed results are dropped, not rendered.
	entities := make([]model.Entity, 0, len(resp.Results))
	for _, raw := range resp.Results {
		e, err := model.ParseEntity(raw)
		if err != nil {
			log.Warn("client: dropping malformed entity", "err", err)
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Connections queries /entity/{id}/connections. Outgoing entries carry only
// the target and incoming only the source; the queried id fills the other
// endpoint.
func (c *Client) Connections(ctx context.Context, id string) (outgoing, incoming []model.Link, err error) {
	type wireLink struct {
		Source       string  `json:"source"`
		Target       string  `json:"target"`
		Relationship string  `json:"relationship"`
		Strength     float64 `json:"strength"`
		DelayDays    float64 `json:"delay_days"`
		Confidence   float64 `json:"confidence"`
	}
	var resp struct {
		Entity   string     `json:"entity"`
		Outgoing []wireLink `json:"outgoing"`
		Incoming []wireLink `json:"incoming"`
	}
	u := fmt.Sprintf("%s/entity/%s/connections", c.base, url.PathEscape(id))
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, nil, err
	}

	convert := func(w wireLink, source, target string) (model.Link, error) {
		rel, err := model.ParseRelationshipType(w.Relationship)
		if err != nil {
			return model.Link{}, err
		}
		l := model.Link{
			Source:       source,
			Target:       target,
			Relationship: rel,
			Strength:     w.Strength,
			DelayDays:    w.DelayDays,
			Confidence:   w.Confidence,
		}
		return l, l.Validate()
	}
	for _, w := range resp.Outgoing {
		l, err := convert(w, id, w.Target)
		if err != nil {
			log.Warn("client: dropping malformed link", "entity", id, "err", err)
			continue
		}
		outgoing = append(outgoing, l)
	}
	for _, w := range resp.Incoming {
		l, err := convert(w, w.Source, id)
		if err != nil {
			log.Warn("client: dropping malformed link", "entity", id, "err", err)
			continue
		}
		incoming = append(incoming, l)
	}
	return outgoing, incoming, nil
}

// PredictRequest is the body of /predict and /explain.
type PredictRequest struct {
	EntityID        string  `json:"entity_id"`
	SurprisePercent float64 `json:"surprise_percent"`
	Description     string  `json:"description,omitempty"`
	HorizonDays     int     `json:"horizon_days,omitempty"`
}

// Predict posts a trigger event and returns the cascade prediction.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (model.Prediction, error) {
	defer metrics.Timer(metrics.PredictRequest)()

	body, err := c.postJSON(ctx, c.base+"/predict", req)
	if err != nil {
		return model.Prediction{}, err
	}
	return model.ParsePrediction(body)
}

// ExplainSummary counts the explained cascade's effects by hop order.
type ExplainSummary struct {
	TotalEffects int `json:"total_effects"`
	FirstOrder   int `json:"first_order"`
	SecondOrder  int `json:"second_order"`
	ThirdOrder   int `json:"third_order"`
}

// Explanation is the /explain response: the traced chains for the top
// effects of a cascade, consumed by the chain-detail view only.
type Explanation struct {
	Trigger    model.Trigger            `json:"trigger"`
	Summary    ExplainSummary           `json:"summary"`
	TopEffects []model.ChainExplanation `json:"top_effects"`
}

// Explain posts a trigger event and returns per-effect causal chains.
func (c *Client) Explain(ctx context.Context, req PredictRequest) (Explanation, error) {
	body, err := c.postJSON(ctx, c.base+"/explain", req)
	if err != nil {
		return Explanation{}, err
	}
	var exp Explanation
	if err := json.Unmarshal(body, &exp); err != nil {
		return Explanation{}, fmt.Errorf("parse explanation: %w", err)
	}
	return exp, nil
}

// FetchGraph returns the full dataset, from cache when fresh unless force
// is set. A miss enumerates all entities and issues one connections request
// per entity sequentially; individual failures are logged and skipped, so
// the result is best-effort rather than atomic. Concurrent misses collapse
// onto a single network flight.
func (c *Client) FetchGraph(ctx context.Context, force bool) (cache.Entry, error) {
	if c.cache != nil && !force {
		if entry, ok := c.cache.Get(); ok {
			return entry, nil
		}
	}

	v, err, _ := c.group.Do("graph", func() (any, error) {
		return c.fetchAll(ctx)
	})
	if err != nil {
		return cache.Entry{}, err
	}
	return v.(cache.Entry), nil
}

func (c *Client) fetchAll(ctx context.Context) (cache.Entry, error) {
	defer metrics.Timer(metrics.BulkFetch)()

	entities, err := c.SearchEntities(ctx, "", searchLimit)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("enumerate entities: %w", err)
	}

	// Only outgoing edges are aggregated; every link shows up as outgoing
	// from its source, so incoming would only produce duplicates.
	seen := make(map[string]bool)
	var links []model.Link
	failed := 0
	for _, e := range entities {
		outgoing, _, err := c.Connections(ctx, e.ID)
		if err != nil {
			if ctx.Err() != nil {
				return cache.Entry{}, ctx.Err()
			}
			log.Warn("client: skipping entity connections", "entity", e.ID, "err", err)
			failed++
			continue
		}
		for _, l := range outgoing {
			if seen[l.DedupKey()] {
				continue
			}
			seen[l.DedupKey()] = true
			links = append(links, l)
		}
	}
	if failed > 0 {
		log.Warn("client: bulk fetch incomplete", "failed", failed, "total", len(entities))
	}

	links = model.FilterDangling(links, entities)
	if c.cache != nil {
		c.cache.Set(entities, links)
		if entry, ok := c.cache.Get(); ok {
			return entry, nil
		}
	}
	return cache.Entry{Entities: entities, Links: links, FetchedAt: time.Now()}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	defer metrics.Timer(metrics.JSONParsing)()
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
