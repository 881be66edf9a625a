package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"newscrawl/internal/checkpoint"
	"newscrawl/internal/dedup"
	"newscrawl/internal/fetcher"
	"newscrawl/internal/listing"
	"newscrawl/internal/ontology"
	"newscrawl/internal/parser"
	"newscrawl/internal/pipeline"
	"newscrawl/internal/pkgconfig"
	"newscrawl/internal/ratelimit"
	"newscrawl/internal/runner"
	"newscrawl/internal/store/article"
	"newscrawl/internal/store/metadata"
)

func main() {
	logger := initLogger()

	runnerCfg, err := runner.LoadConfigFromEnv()
	if err != nil {
		logger.Error("crawler: config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	fetcherCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("crawler: fetcher config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := fetcherCfg.Validate(); err != nil {
		logger.Error("crawler: fetcher config invalid", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metaStore, closeStore, err := openMetadataStore(ctx)
	if err != nil {
		logger.Error("crawler: metadata store open failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	limiter := ratelimit.New(fetcherCfg.RateLimit)
	f := fetcher.New(fetcherCfg, limiter)
	p := parser.New(nil) // nil uses entity.DefaultIdentifierPattern

	bloom := dedup.NewBloomTier(
		uint(pkgconfig.Int("CRAWLER_DEDUP_BLOOM_EXPECTED_ITEMS", 1_000_000)),
		0,
	)
	recent := dedup.NewRecentCache(pkgconfig.Int("CRAWLER_DEDUP_RECENT_CACHE_SIZE", 0))
	checker := dedup.New(bloom, recent, metaStore)

	articleDir := pkgconfig.String("CRAWLER_ARTICLE_DIR", "./data/articles")
	articles := article.New(articleDir)

	checkpointDir := pkgconfig.String("CRAWLER_CHECKPOINT_DIR", "./data/checkpoints")
	checkpoints := checkpoint.New(checkpointDir)

	listingSrc := listing.New(listingConfigFromEnv(), f)

	saveCadence := pkgconfig.Int("CRAWLER_CHECKPOINT_SAVE_CADENCE", 50)

	ontologyClient, err := ontology.NewClientFromEnv()
	if err != nil {
		logger.Error("crawler: ontology client setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	r := runner.New(
		*runnerCfg,
		runner.NewCoordinatorClient(runnerCfg.CoordinatorURL, runnerCfg.BearerToken, runnerCfg.RequestTimeout),
		logger,
		pipeline.DefaultConfig(),
		listingSrc,
		f,
		p,
		checker,
		articles,
		metaStore,
		checkpoints,
		saveCadence,
	).WithOntologyNotifier(ontology.NewNotifier(ontologyClient))

	logger.Info("crawler: starting", slog.String("instance_id", runnerCfg.InstanceID))
	if err := r.Run(ctx); err != nil {
		logger.Error("crawler: exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("crawler: stopped")
}

// openMetadataStore opens either Postgres or SQLite depending on
// CRAWLER_DB_DRIVER, mirroring cmd/api's single-database assumption but
// letting an operator run a crawler instance against either backend per
// spec.md §4.4's "any SQL store satisfying this contract" framing.
func openMetadataStore(ctx context.Context) (metadataStore, func(), error) {
	driver := pkgconfig.String("CRAWLER_DB_DRIVER", "sqlite")
	switch driver {
	case "postgres":
		dsn := pkgconfig.String("CRAWLER_DB_DSN", "")
		if dsn == "" {
			return nil, nil, fmt.Errorf("CRAWLER_DB_DSN must be set when CRAWLER_DB_DRIVER=postgres")
		}
		store, err := metadata.OpenPostgres(ctx, dsn, metadata.DefaultConnectionConfig())
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "sqlite":
		path := pkgconfig.String("CRAWLER_DB_PATH", "./data/newscrawl.db")
		store, err := metadata.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unrecognized CRAWLER_DB_DRIVER %q (want postgres or sqlite)", driver)
	}
}

// metadataStore is satisfied by both *metadata.PostgresStore and
// *metadata.SQLiteStore; it lets openMetadataStore return either without
// the caller branching on which one it got.
type metadataStore interface {
	pipeline.MetadataInserter
	dedup.MetadataLookup
	Close() error
}

// listingConfigFromEnv builds a listing.Config from a handful of
// environment variables; the per-category URL templates and selectors are
// portal-specific and have no universal default, so an unset
// CRAWLER_LISTING_CATEGORIES leaves listing.Source with nothing configured
// and FetchPage will fail fast for every category until it's set.
func listingConfigFromEnv() listing.Config {
	cfg := listing.DefaultConfig()
	cfg.RefererBase = pkgconfig.String("CRAWLER_LISTING_REFERER_BASE", "https://portal.example.com/section/")
	cfg.MinFullPage = pkgconfig.Int("CRAWLER_LISTING_MIN_FULL_PAGE", cfg.MinFullPage)
	return cfg
}

func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
