// Package search implements the scan strategies over partitioned collections.
package search

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/match"
	"github.com/sarychdb/sarychdb/pkg/partition"
)

// Predicate decides whether a document belongs in the result.
type Predicate func(document.Value) bool

// Searcher runs scan strategies. Parallel scans from every caller share one
// worker pool, so total scan concurrency stays bounded by the pool size no
// matter how many requests are in flight.
type Searcher struct {
	pool      *semaphore.Weighted
	workers   int
	threshold int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithWorkers sets the shared pool size. Non-positive values keep the default.
func WithWorkers(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSmartThreshold sets the document count at which Smart goes parallel.
func WithSmartThreshold(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// NewSearcher creates a Searcher whose pool defaults to GOMAXPROCS workers.
func NewSearcher(options ...Option) *Searcher {
	s := &Searcher{
		workers:   runtime.GOMAXPROCS(0),
		threshold: DefaultSmartThreshold,
	}
	for _, option := range options {
		option(s)
	}
	s.pool = semaphore.NewWeighted(int64(s.workers))
	return s
}

// Workers returns the shared pool size.
func (s *Searcher) Workers() int { return s.workers }

// Threshold returns the Smart switch-over size.
func (s *Searcher) Threshold() int { return s.threshold }

// Resolve maps Smart onto the concrete strategy it would run for total documents.
func (s *Searcher) Resolve(strategy Strategy, total int) Strategy {
	if strategy != Smart {
		return strategy
	}
	if total < s.threshold {
		return Sequential
	}
	return Parallel
}

// Search runs strategy with the substring predicate for query.
func (s *Searcher) Search(strategy Strategy, nodes [][]document.Value, query string) []document.Value {
	return s.Run(strategy, nodes, func(doc document.Value) bool {
		return match.Contains(doc, query)
	})
}

// Run scans nodes with pred using strategy. Matches are returned by reference.
// Every strategy returns matches in original document order.
func (s *Searcher) Run(strategy Strategy, nodes [][]document.Value, pred Predicate) []document.Value {
	switch s.Resolve(strategy, countDocs(nodes)) {
	case Centralized:
		return scanNode(partition.Flatten(nodes), pred)
	case Parallel:
		return s.parallel(nodes, pred)
	default:
		return sequential(nodes, pred)
	}
}

func sequential(nodes [][]document.Value, pred Predicate) []document.Value {
	results := []document.Value{}
	for _, node := range nodes {
		results = append(results, scanNode(node, pred)...)
	}
	return results
}

// parallel scans each node as its own task. Tasks write only to their own slot,
// and slots are concatenated in node order once every task has finished.
func (s *Searcher) parallel(nodes [][]document.Value, pred Predicate) []document.Value {
	slots := make([][]document.Value, len(nodes))

	var g errgroup.Group
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			// Acquire with a background context cannot fail.
			if err := s.pool.Acquire(context.Background(), 1); err != nil {
				return err
			}
			defer s.pool.Release(1)
			slots[i] = scanNode(node, pred)
			return nil
		})
	}
	_ = g.Wait()

	return partition.Flatten(slots)
}

func scanNode(node []document.Value, pred Predicate) []document.Value {
	matched := []document.Value{}
	for _, doc := range node {
		if pred(doc) {
			matched = append(matched, doc)
		}
	}
	return matched
}

func countDocs(nodes [][]document.Value) int {
	total := 0
	for _, node := range nodes {
		total += len(node)
	}
	return total
}
