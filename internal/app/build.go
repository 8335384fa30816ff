package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ent0n29/matchwork/internal/bids"
	"github.com/ent0n29/matchwork/internal/cache"
	"github.com/ent0n29/matchwork/internal/config"
	"github.com/ent0n29/matchwork/internal/creators"
	"github.com/ent0n29/matchwork/internal/feed"
	"github.com/ent0n29/matchwork/internal/httpapi"
	"github.com/ent0n29/matchwork/internal/matching"
	"github.com/ent0n29/matchwork/internal/observability"
	"github.com/ent0n29/matchwork/internal/projects"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Registry *feed.Registry
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources
	// (DB pools, Redis, live feed subscriptions).
	Cleanup func() error
}

// Build wires the whole service. With DATABASE_URL unset the stores run
// in memory, which is how local development and the test suite run.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*BuildResult, error) {
	if log == nil {
		log = slog.Default()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var closers []func() error

	projectStore, creatorStore, bidStore, err := buildStores(ctx, cfg, log, &closers)
	if err != nil {
		return nil, err
	}

	var cacheClient *cache.Client
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			runClosers(closers)
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
		closers = append(closers, cacheClient.Close)
		log.Info("redis cache enabled", "ttl", cfg.CacheTTL)
	} else {
		log.Info("redis cache disabled, reads go straight to the store")
	}

	registry := feed.NewRegistry(cfg.FeedBuffer)
	registry.SetDropHook(func(channel string) {
		metrics.FeedDrops.Inc()
		log.Warn("feed event dropped", "channel", channel)
	})

	projectSvc := projects.NewService(projectStore, cacheClient, registry, metrics, log)
	creatorSvc := creators.NewService(creatorStore, cacheClient, metrics, log)
	bidSvc := bids.NewService(bidStore, projectSvc, creatorSvc, registry, metrics, log)
	matcher := matching.NewMatcher(projectSvc, creatorSvc, cfg.MatchLimit)

	api := httpapi.NewServer(cfg, projectSvc, creatorSvc, bidSvc, matcher, registry, metrics, log)

	cleanup := func() error {
		registry.CloseAll()
		return runClosers(closers)
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Registry: registry,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}

func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger, closers *[]func() error) (projects.Store, creators.Store, bids.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, using in-memory stores")
		return projects.NewMemoryStore(), creators.NewMemoryStore(), bids.NewMemoryStore(), nil
	}

	projectStore, err := projects.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("project store init failed: %w", err)
	}
	*closers = append(*closers, projectStore.Close)

	creatorStore, err := creators.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		runClosers(*closers)
		return nil, nil, nil, fmt.Errorf("creator store init failed: %w", err)
	}
	*closers = append(*closers, creatorStore.Close)

	bidStore, err := bids.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		runClosers(*closers)
		return nil, nil, nil, fmt.Errorf("bid store init failed: %w", err)
	}
	*closers = append(*closers, bidStore.Close)

	log.Info("postgres stores ready")
	return projectStore, creatorStore, bidStore, nil
}

func runClosers(closers []func() error) error {
	var errs []string
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
