// Package engine is the query pipeline: it combines the document store, the
// partitioner, the search strategies and the result cache into the operations
// the protocol layer exposes.
package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/cache"
	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/match"
	"github.com/sarychdb/sarychdb/pkg/metrics"
	"github.com/sarychdb/sarychdb/pkg/partition"
	"github.com/sarychdb/sarychdb/pkg/search"
	"github.com/sarychdb/sarychdb/pkg/storage"
)

// Store is the document store the engine reads and writes through.
type Store interface {
	CollectionPath(owner, name string) string
	Read(owner, name string) ([]document.Value, error)
	Write(owner, name string, docs []document.Value) error
	Size(owner, name string) (int64, error)
	WriteSnapshot(owner, name string, docs []document.Value, createdAt time.Time) (int64, error)
	ReadSnapshot(owner, name string) (*storage.Snapshot, error)
}

// Cache holds materialized search results keyed by collection path and query.
// *cache.ResultCache is the production implementation.
type Cache interface {
	Lookup(collKey, query string) ([]document.Value, bool)
	Store(collKey, query string, docs []document.Value, ttl time.Duration)
	Invalidate(collKey string) int
	ClearAll()
	Len() int
}

// Engine runs queries and writes against per-user collections. It is safe for
// concurrent use. Writes to the same collection are not serialised: the last
// rewrite wins.
type Engine struct {
	store      Store
	cache      Cache
	searcher   *search.Searcher
	strategy   search.Strategy
	partitions int
	ttl        time.Duration
	now        func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// New creates an engine over store.
func New(store Store, options ...Option) *Engine {
	e := &Engine{
		store:    store,
		strategy: search.Smart,
		ttl:      DefaultTTL,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   zap.NewNop(),
	}
	for _, option := range options {
		option(e)
	}
	if e.cache == nil {
		e.cache = cache.New(cache.WithClock(e.now))
	}
	if e.searcher == nil {
		e.searcher = search.NewSearcher()
	}
	return e
}

// Search returns the documents of a collection that match query under mode.
// An empty query returns the whole collection.
func (e *Engine) Search(owner, name, query string, mode QueryMode) (*domain.SearchResult, error) {
	result, err := e.search(owner, name, query, mode)
	metrics.OperationsTotal.WithLabelValues("search", metrics.Status(err)).Inc()
	return result, err
}

func (e *Engine) search(owner, name, query string, mode QueryMode) (*domain.SearchResult, error) {
	if query == "" {
		docs, cached, err := e.loadAll(owner, name)
		if err != nil {
			return nil, err
		}
		return &domain.SearchResult{Results: docs, Count: len(docs), Cached: cached}, nil
	}

	switch mode {
	case ModeKey:
		return e.scanLive(owner, name, func(doc document.Value) bool {
			return match.HasKey(doc, query)
		})
	case ModeValue:
		return e.scanLive(owner, name, func(doc document.Value) bool {
			return match.ContainsValue(doc, query)
		})
	case ModeSubstring:
		return e.searchCached(owner, name, query)
	}
	return nil, domain.NewError(domain.KindInvalidArgument, "unsupported query mode %q", mode)
}

// searchCached is the default path: cache lookup, then a partitioned scan whose
// result is stored for the next caller.
func (e *Engine) searchCached(owner, name, query string) (*domain.SearchResult, error) {
	key := e.store.CollectionPath(owner, name)
	if docs, ok := e.lookup(key, query); ok {
		return &domain.SearchResult{Results: docs, Count: len(docs), Cached: true}, nil
	}

	docs, err := e.store.Read(owner, name)
	if err != nil {
		return nil, err
	}

	strategy := e.searcher.Resolve(e.strategy, len(docs))
	matched := e.scan(strategy, docs, func(doc document.Value) bool {
		return match.Contains(doc, query)
	})
	e.remember(key, query, matched)

	return &domain.SearchResult{Results: matched, Count: len(matched), Strategy: strategy.String()}, nil
}

func (e *Engine) scanLive(owner, name string, pred search.Predicate) (*domain.SearchResult, error) {
	docs, err := e.store.Read(owner, name)
	if err != nil {
		return nil, err
	}
	strategy := e.searcher.Resolve(e.strategy, len(docs))
	matched := e.scan(strategy, docs, pred)
	return &domain.SearchResult{Results: matched, Count: len(matched), Strategy: strategy.String()}, nil
}

func (e *Engine) scan(strategy search.Strategy, docs []document.Value, pred search.Predicate) []document.Value {
	start := time.Now()
	nodes := partition.Split(docs, e.partitions)
	matched := e.searcher.Run(strategy, nodes, pred)
	metrics.SearchDuration.WithLabelValues(strategy.String()).Observe(time.Since(start).Seconds())
	return matched
}

// loadAll returns the full collection through the cache, keyed by the empty query.
func (e *Engine) loadAll(owner, name string) ([]document.Value, bool, error) {
	key := e.store.CollectionPath(owner, name)
	if docs, ok := e.lookup(key, ""); ok {
		return docs, true, nil
	}

	docs, err := e.store.Read(owner, name)
	if err != nil {
		return nil, false, err
	}
	e.remember(key, "", docs)
	return docs, false, nil
}

// lookup consults the cache. A cache failure is logged and reported as a miss.
func (e *Engine) lookup(key, query string) (docs []document.Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("result cache lookup failed, falling back to scan",
				zap.String("collection", key), zap.Any("panic", r))
			docs, ok = nil, false
		}
	}()

	docs, ok = e.cache.Lookup(key, query)
	if ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		e.logger.Debug("cache hit", zap.String("collection", key), zap.String("query", query))
	} else {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
	return docs, ok
}

func (e *Engine) remember(key, query string, docs []document.Value) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("result cache store failed", zap.String("collection", key), zap.Any("panic", r))
		}
	}()
	e.cache.Store(key, query, docs, e.ttl)
}

func (e *Engine) invalidate(owner, name string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("result cache invalidation failed", zap.String("owner", owner),
				zap.String("collection", name), zap.Any("panic", r))
		}
	}()
	removed := e.cache.Invalidate(e.store.CollectionPath(owner, name))
	metrics.CacheInvalidationsTotal.Add(float64(removed))
}

// ClearCache drops every cached result.
func (e *Engine) ClearCache() {
	e.cache.ClearAll()
	e.logger.Info("result cache cleared")
}

// CacheLen returns the number of cached result sets.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339Nano)
}
