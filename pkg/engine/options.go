package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/search"
)

// DefaultTTL is how long a cached search result stays usable.
const DefaultTTL = 300 * time.Second

// Option configures an Engine.
type Option func(*Engine)

// WithPartitions sets how many nodes a collection is split into. Zero means one per CPU.
func WithPartitions(n int) Option {
	return func(e *Engine) {
		e.partitions = n
	}
}

// WithStrategy sets the strategy used for default-mode searches.
func WithStrategy(s search.Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithSearcher replaces the default searcher. A nil searcher is ignored.
func WithSearcher(s *search.Searcher) Option {
	return func(e *Engine) {
		if s != nil {
			e.searcher = s
		}
	}
}

// WithCache sets the result cache. Without it the engine builds its own on the engine clock.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithTTL sets the lifetime of cached results. A non-positive TTL disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// WithClock replaces time.Now for document timestamps and the default cache.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator replaces the UUID generator used to stamp inserted documents.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
