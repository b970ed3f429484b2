package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/api"
	"github.com/sarychdb/sarychdb/pkg/auth"
	"github.com/sarychdb/sarychdb/pkg/cache"
	"github.com/sarychdb/sarychdb/pkg/config"
	"github.com/sarychdb/sarychdb/pkg/engine"
	"github.com/sarychdb/sarychdb/pkg/logger"
	"github.com/sarychdb/sarychdb/pkg/metrics"
	"github.com/sarychdb/sarychdb/pkg/search"
	"github.com/sarychdb/sarychdb/pkg/server"
	"github.com/sarychdb/sarychdb/pkg/storage"
)

// sweepInterval is how often expired cache entries are dropped.
const sweepInterval = time.Minute

func main() {
	if len(os.Args) > 1 && os.Args[1] == "benchmark" {
		if err := runBenchmark(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "benchmark: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Command line flags
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		port       = flag.Int("port", 0, "Server port (overrides config and PORT)")
		dataDir    = flag.String("data-dir", "", "Data directory for users and databases")
		partitions = flag.Int("partitions", -1, "Partitions per collection (0 = one per CPU)")
		workers    = flag.Int("workers", -1, "Search workers (0 = one per CPU)")
		strategy   = flag.String("strategy", "", "Default search strategy: centralized, sequential, parallel, smart")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
		showHelp   = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nsarychdb is a multi-user JSON document database served over HTTP.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # Start with defaults on :3030\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config sarychdb.yaml              # Load settings from YAML\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -data-dir /var/sarych  # Custom port and data directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -strategy parallel -workers 8     # Force parallel scans\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s benchmark -file data.json -query x # Time every search strategy\n", os.Args[0])
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the config file
	if *port > 0 {
		cfg.HTTP.Port = *port
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *partitions >= 0 {
		cfg.Search.Partitions = *partitions
	}
	if *workers >= 0 {
		cfg.Search.Workers = *workers
	}
	if *strategy != "" {
		cfg.Search.Strategy = *strategy
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Env: cfg.Env, Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	metrics.RegisterEngineMetrics()
	metrics.RegisterHTTPMetrics()

	defaultStrategy, err := search.ParseStrategy(cfg.Search.Strategy)
	if err != nil {
		return err
	}

	store := storage.NewStore(
		storage.WithDataDir(cfg.Storage.DataDir),
		storage.WithLogger(logger.Component(log, "storage")),
	)
	users, err := auth.NewUserStore(cfg.Storage.DataDir, store,
		auth.WithBcryptCost(cfg.Auth.BcryptCost),
		auth.WithLogger(logger.Component(log, "auth")),
	)
	if err != nil {
		return fmt.Errorf("failed to open accounts: %w", err)
	}

	results := cache.New(cache.WithMaxEntries(cfg.Cache.MaxEntries))
	eng := engine.New(store,
		engine.WithCache(results),
		engine.WithTTL(cfg.CacheTTL()),
		engine.WithStrategy(defaultStrategy),
		engine.WithPartitions(cfg.Search.Partitions),
		engine.WithSearcher(search.NewSearcher(
			search.WithWorkers(cfg.Search.Workers),
			search.WithSmartThreshold(cfg.Search.SmartThreshold),
		)),
		engine.WithLogger(logger.Component(log, "engine")),
	)

	handler := api.NewHandler(eng, users, api.WithAdminToken(cfg.Auth.AdminToken))
	srv := server.NewServer(handler, log)

	addr := ":" + strconv.Itoa(cfg.HTTP.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, results, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting sarychdb server",
			zap.String("addr", addr),
			zap.String("data_dir", cfg.Storage.DataDir),
			zap.String("strategy", defaultStrategy.String()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func sweepLoop(ctx context.Context, results *cache.ResultCache, log *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := results.Sweep(); n > 0 {
				log.Debug("swept expired cache entries", zap.Int("entries", n))
			}
		}
	}
}
