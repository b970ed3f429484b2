package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/logger"
	"github.com/sarychdb/sarychdb/pkg/partition"
	"github.com/sarychdb/sarychdb/pkg/search"
)

// benchmarkResult is the timing of one strategy for one query.
type benchmarkResult struct {
	Query    string
	Strategy search.Strategy
	Matches  int
	Average  time.Duration
}

func runBenchmark(args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	var (
		file       = fs.String("file", "", "JSON array of documents to search (required)")
		queries    = fs.String("query", "", "Comma-separated queries to time (required)")
		partitions = fs.Int("partitions", 0, "Partitions to split the documents into (0 = one per CPU)")
		workers    = fs.Int("workers", 0, "Search workers (0 = one per CPU)")
		rounds     = fs.Int("rounds", 5, "Runs per strategy; the average is reported")
		env        = fs.String("env", "local", "Logger environment: local, dev, prod")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" || *queries == "" {
		fs.Usage()
		return fmt.Errorf("-file and -query are required")
	}

	log, err := logger.New(logger.Options{Env: *env})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	data, err := os.ReadFile(filepath.Clean(*file))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *file, err)
	}
	docs, err := document.ParseArray(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", *file, err)
	}

	searcher := search.NewSearcher(search.WithWorkers(*workers))
	log.Info("benchmark starting",
		zap.Int("documents", len(docs)),
		zap.Int("partitions", len(partition.Split(docs, *partitions))),
		zap.Int("workers", searcher.Workers()),
		zap.Int("rounds", *rounds),
	)

	for _, r := range benchmarkStrategies(searcher, docs, *partitions, splitQueries(*queries), *rounds) {
		log.Info("strategy timing",
			zap.String("query", r.Query),
			zap.String("strategy", r.Strategy.String()),
			zap.Int("matches", r.Matches),
			zap.Duration("average", r.Average),
		)
	}
	return nil
}

// benchmarkStrategies times every strategy against each query.
func benchmarkStrategies(searcher *search.Searcher, docs []document.Value, partitions int, queries []string, rounds int) []benchmarkResult {
	if rounds < 1 {
		rounds = 1
	}
	nodes := partition.Split(docs, partitions)

	var results []benchmarkResult
	for _, query := range queries {
		for _, strategy := range search.Strategies() {
			var matches int
			start := time.Now()
			for i := 0; i < rounds; i++ {
				matches = len(searcher.Search(strategy, nodes, query))
			}
			results = append(results, benchmarkResult{
				Query:    query,
				Strategy: strategy,
				Matches:  matches,
				Average:  time.Since(start) / time.Duration(rounds),
			})
		}
	}
	return results
}

func splitQueries(raw string) []string {
	var out []string
	for _, q := range strings.Split(raw, ",") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
