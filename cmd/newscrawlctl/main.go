// Package main provides newscrawlctl, the CLI surface of spec.md §6:
// `crawl`, `index`, `search`, `ontology`, `serve`, `distributed`, `resume`,
// `stats`. Flag parsing per subcommand is deliberately minimal — this
// binary is a thin wrapper over the library packages, not a UX surface in
// its own right.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newscrawl/internal/checkpoint"
	"newscrawl/internal/coordinator"
	"newscrawl/internal/dedup"
	"newscrawl/internal/domain/entity"
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

// allCategories enumerates the closed category set stats reports over.
var allCategories = []entity.Category{
	entity.CategoryGeneral, entity.CategoryPolitics, entity.CategoryEconomy,
	entity.CategorySociety, entity.CategoryWorld, entity.CategoryEntertainment,
	entity.CategorySports, entity.CategoryCulture, entity.CategoryIT, entity.CategoryOpinion,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := initLogger()
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "crawl":
		err = runCrawl(logger, args, false)
	case "resume":
		// Resumption is automatic: the pipeline always loads whatever
		// checkpoint state exists for the category/date before running,
		// per spec.md's checkpoint contract. resume is crawl run again.
		err = runCrawl(logger, args, true)
	case "distributed":
		err = runDistributed(logger, args)
	case "serve":
		err = runServe(logger, args)
	case "stats":
		err = runStats(logger, args)
	case "index", "search", "ontology":
		fmt.Fprintf(os.Stderr, "newscrawlctl %s: not implemented in core\n", cmd)
		os.Exit(2)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("newscrawlctl: command failed", slog.String("command", cmd), slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: newscrawlctl <crawl|index|search|ontology|serve|distributed|resume|stats> [flags]")
}

// runCrawl drives one slot's pipeline locally, without a coordinator —
// the single-instance mode spec.md §4.6 describes independent of §4.7's
// distributed coordination layer.
func runCrawl(logger *slog.Logger, args []string, resuming bool) error {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	category := fs.String("category", "general", "category to crawl")
	date := fs.String("date", "", "window date, YYYY-MM-DD (defaults to today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat := entity.Category(*category)
	if !cat.IsValid() {
		return fmt.Errorf("newscrawlctl: unrecognized category %q", *category)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := buildPipelineDeps(ctx)
	if err != nil {
		return err
	}
	defer closeDeps()

	windowDate := *date
	if windowDate == "" {
		windowDate = time.Now().UTC().Format("2006-01-02")
	}

	state := deps.checkpoints.Load(cat, windowDate)
	if resuming {
		logger.Info("newscrawlctl: resuming", slog.String("category", *category),
			slog.Int("last_page_index", state.LastPageIndex), slog.Int("completed_count", len(state.Completed)))
	}
	tracker := checkpoint.NewTracker(deps.checkpoints, state, 50, nil)

	p := pipeline.New(deps.pipelineCfg, deps.listings, deps.fetcher, deps.parser, deps.checker, deps.articles, deps.meta, tracker).
		WithOntologyNotifier(deps.notifier)
	result, err := p.Run(ctx, cat, state.LastPageIndex)
	if err != nil {
		return err
	}
	logger.Info("newscrawlctl: crawl finished",
		slog.String("category", *category), slog.String("outcome", string(result.Outcome)),
		slog.Int64("stored", result.Stats.Stored))
	return nil
}

// runDistributed runs this process as a registered instance against a
// coordinator, the same lifecycle cmd/crawler drives as a dedicated
// binary.
func runDistributed(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("distributed", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	runnerCfg, err := runner.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := buildPipelineDeps(ctx)
	if err != nil {
		return err
	}
	defer closeDeps()

	r := runner.New(
		*runnerCfg,
		runner.NewCoordinatorClient(runnerCfg.CoordinatorURL, runnerCfg.BearerToken, runnerCfg.RequestTimeout),
		logger,
		deps.pipelineCfg,
		deps.listings,
		deps.fetcher,
		deps.parser,
		deps.checker,
		deps.articles,
		deps.meta,
		deps.checkpoints,
		50,
	).WithOntologyNotifier(deps.notifier)
	return r.Run(ctx)
}

// runServe starts the coordinator HTTP service, the same lifecycle
// cmd/coordinatord drives as a dedicated binary.
func runServe(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := coordinator.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := coordinator.NewServer(*cfg, logger)
	return srv.Run(ctx)
}

// runStats prints the metadata store's per-category and total article
// counts (spec.md §4.4's secondary index on category makes this a cheap
// query).
func runStats(_ *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openMetadataStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	total, err := store.TotalCount(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("total articles: %d\n", total)

	for _, cat := range allCategories {
		count, err := store.CountByCategory(ctx, cat)
		if err != nil {
			return err
		}
		fmt.Printf("  %-15s %d\n", cat, count)
	}
	return nil
}

// pipelineDeps bundles the constructor arguments runCrawl and
// runDistributed both need, so the wiring lives in one place.
type pipelineDeps struct {
	pipelineCfg pipeline.Config
	listings    pipeline.ListingSource
	fetcher     pipeline.Fetcher
	parser      pipeline.Parser
	checker     pipeline.DedupChecker
	articles    pipeline.ArticleWriter
	meta        metadataStore
	checkpoints *checkpoint.Manager
	notifier    pipeline.OntologyNotifier
}

func buildPipelineDeps(ctx context.Context) (*pipelineDeps, func(), error) {
	fetcherCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if err := fetcherCfg.Validate(); err != nil {
		return nil, nil, err
	}

	store, closeStore, err := openMetadataStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	limiter := ratelimit.New(fetcherCfg.RateLimit)
	f := fetcher.New(fetcherCfg, limiter)
	p := parser.New(nil)

	bloom := dedup.NewBloomTier(uint(pkgconfig.Int("CRAWLER_DEDUP_BLOOM_EXPECTED_ITEMS", 1_000_000)), 0)
	recent := dedup.NewRecentCache(pkgconfig.Int("CRAWLER_DEDUP_RECENT_CACHE_SIZE", 0))
	checker := dedup.New(bloom, recent, store)

	articles := article.New(pkgconfig.String("CRAWLER_ARTICLE_DIR", "./data/articles"))
	checkpoints := checkpoint.New(pkgconfig.String("CRAWLER_CHECKPOINT_DIR", "./data/checkpoints"))

	listingCfg := listing.DefaultConfig()
	listingCfg.RefererBase = pkgconfig.String("CRAWLER_LISTING_REFERER_BASE", listingCfg.RefererBase)
	listingSrc := listing.New(listingCfg, f)

	ontologyClient, err := ontology.NewClientFromEnv()
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	return &pipelineDeps{
		pipelineCfg: pipeline.DefaultConfig(),
		listings:    listingSrc,
		fetcher:     f,
		parser:      p,
		checker:     checker,
		articles:    articles,
		meta:        store,
		checkpoints: checkpoints,
		notifier:    ontology.NewNotifier(ontologyClient),
	}, closeStore, nil
}

// metadataStore is satisfied by both *metadata.PostgresStore and
// *metadata.SQLiteStore.
type metadataStore interface {
	pipeline.MetadataInserter
	dedup.MetadataLookup
	TotalCount(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context, category entity.Category) (int64, error)
	Close() error
}

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

func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
