// Package cache implements the time-bounded query result cache.
package cache

import (
	"sync"
	"time"

	"github.com/sarychdb/sarychdb/pkg/document"
)

// DefaultMaxEntries is the soft ceiling above which Store sweeps expired entries.
const DefaultMaxEntries = 100

type entry struct {
	docs      []document.Value
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.createdAt.Add(e.ttl))
}

// ResultCache maps (collection key, raw query) to a materialized result set.
// Entries are deep copies on the way in and on the way out, so cached results
// never alias a live collection. The mutex guards one map operation at a time
// and is never held while copying documents.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]map[string]*entry // collection key -> query -> entry
	count      int
	maxEntries int
	now        func() time.Time
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithMaxEntries sets the soft ceiling that triggers an expiry sweep.
func WithMaxEntries(n int) Option {
	return func(c *ResultCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(options ...Option) *ResultCache {
	c := &ResultCache{
		entries:    make(map[string]map[string]*entry),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Lookup returns a copy of the cached results for (collKey, query) if an
// unexpired entry exists. An expired entry is removed.
func (c *ResultCache) Lookup(collKey, query string) ([]document.Value, bool) {
	e, ok := c.live(collKey, query)
	if !ok {
		return nil, false
	}
	// Stored slices are never mutated after insertion, so copying outside the lock is safe.
	return document.CloneAll(e.docs), true
}

// live returns the unexpired entry for (collKey, query), removing an expired one.
func (c *ResultCache) live(collKey, query string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[collKey][query]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		c.removeLocked(collKey, query)
		return nil, false
	}
	return e, true
}

// Store inserts or overwrites the entry for (collKey, query). A non-positive
// ttl stores nothing. Once the entry count exceeds the soft ceiling every
// expired entry in the cache is swept.
func (c *ResultCache) Store(collKey, query string, docs []document.Value, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	stored := document.CloneAll(docs)
	if stored == nil {
		stored = []document.Value{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	queries, ok := c.entries[collKey]
	if !ok {
		queries = make(map[string]*entry)
		c.entries[collKey] = queries
	}
	if _, exists := queries[query]; !exists {
		c.count++
	}
	queries[query] = &entry{docs: stored, createdAt: now, ttl: ttl}

	if c.count > c.maxEntries {
		c.sweepLocked(now)
	}
}

// Invalidate drops every entry stored under collKey and returns how many were removed.
func (c *ResultCache) Invalidate(collKey string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries[collKey])
	delete(c.entries, collKey)
	c.count -= removed
	return removed
}

// ClearAll empties the cache.
func (c *ResultCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]map[string]*entry)
	c.count = 0
}

// Len returns the number of entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Sweep removes every expired entry and returns how many were removed.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *ResultCache) sweepLocked(now time.Time) int {
	removed := 0
	for collKey, queries := range c.entries {
		for query, e := range queries {
			if e.expired(now) {
				delete(queries, query)
				removed++
			}
		}
		if len(queries) == 0 {
			delete(c.entries, collKey)
		}
	}
	c.count -= removed
	return removed
}

func (c *ResultCache) removeLocked(collKey, query string) {
	queries := c.entries[collKey]
	if _, ok := queries[query]; !ok {
		return
	}
	delete(queries, query)
	c.count--
	if len(queries) == 0 {
		delete(c.entries, collKey)
	}
}
