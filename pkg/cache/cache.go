// Package cache memoizes the full entity/relationship dataset with a TTL so
// a view remount never repeats the expensive bulk fetch and layout warm-up.
//
// The cache holds exactly one dataset. Writes replace the whole entry; there
// is no partial merge, so readers always observe a consistent snapshot.
package cache

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/marketgraph/cascadeviz/pkg/metrics"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// DefaultTTL is how long a stored dataset stays fresh.
const DefaultTTL = 30 * time.Minute

// Entry is one cached dataset snapshot.
type Entry struct {
	Entities  []model.Entity `json:"entities"`
	Links     []model.Link   `json:"links"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Info describes the cache state for display surfaces.
type Info struct {
	IsCached   bool    `json:"is_cached"`
	AgeMinutes float64 `json:"age_minutes"`
	NodeCount  int     `json:"node_count"`
	LinkCount  int     `json:"link_count"`
}

// Store persists cache entries across process restarts. Implementations must
// treat Save as whole-entry replacement.
type Store interface {
	Load() (*Entry, error)
	Save(Entry) error
	Clear() error
}

// Cache is the process-wide graph dataset cache. Only the fetch routine
// writes it; mutation is whole-entry replacement.
type Cache struct {
	mu    sync.RWMutex
	entry *Entry
	ttl   time.Duration
	now   func() time.Time
	store Store
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects a clock, used by tests to step time deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStore attaches a persistent backing store. A fresh persisted entry is
// adopted at construction; Set and Invalidate write through best-effort.
func WithStore(s Store) Option {
	return func(c *Cache) {
		c.store = s
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil {
		entry, err := c.store.Load()
		if err != nil {
			log.Warn("cache: loading persisted entry", "err", err)
		} else if entry != nil && c.fresh(*entry) {
			c.entry = entry
		}
	}
	return c
}

// Get returns the cached entry iff it is still fresh.
func (c *Cache) Get() (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || !c.fresh(*c.entry) {
		metrics.GraphCache.Miss()
		return Entry{}, false
	}
	metrics.GraphCache.Hit()
	return *c.entry, true
}

// Set stores a fresh entry, replacing any previous one atomically.
func (c *Cache) Set(entities []model.Entity, links []model.Link) {
	entry := Entry{
		Entities:  entities,
		Links:     links,
		FetchedAt: c.now(),
	}
	c.mu.Lock()
	c.entry = &entry
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(entry); err != nil {
			log.Warn("cache: persisting entry", "err", err)
		}
	}
}

// Invalidate clears the cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			log.Warn("cache: clearing persisted entry", "err", err)
		}
	}
}

// Info reports the current cache state. A stale entry reports as not cached.
func (c *Cache) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || !c.fresh(*c.entry) {
		return Info{}
	}
	return Info{
		IsCached:   true,
		AgeMinutes: c.now().Sub(c.entry.FetchedAt).Minutes(),
		NodeCount:  len(c.entry.Entities),
		LinkCount:  len(c.entry.Links),
	}
}

func (c *Cache) fresh(e Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.ttl
}
