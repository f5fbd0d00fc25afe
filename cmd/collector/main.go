package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/cache"
	"github.com/baxromumarov/hh-collector/internal/cache/redis"
	"github.com/baxromumarov/hh-collector/internal/config"
	"github.com/baxromumarov/hh-collector/internal/console"
	"github.com/baxromumarov/hh-collector/internal/core"
	"github.com/baxromumarov/hh-collector/internal/observability"
	"github.com/baxromumarov/hh-collector/internal/scraper"
	"github.com/baxromumarov/hh-collector/internal/store"
)

func main() {
	keyword := flag.String("keyword", "", "Keyword for the prefix/suffix name search (defaults to the search text)")
	noSnapshot := flag.Bool("no-snapshot", false, "Do not write the JSON snapshot")
	appendSnapshot := flag.Bool("append-snapshot", false, "Add new vacancies in front of the existing snapshot instead of replacing it")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *keyword, !*noSnapshot, *appendSnapshot); err != nil {
		logger.Error("run failed", zap.String("kind", observability.ClassifyError(err)), zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, keyword string, withSnapshot, appendSnapshot bool) error {
	hh := scraper.NewHHClient(cfg, logger)

	var employers scraper.EmployerSource = hh
	if cfg.RedisAddr != "" {
		rc := redis.New(cache.Options{
			RedisURL:      cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			DefaultTTL:    cfg.CacheTTL,
		})
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, employer cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			employers = scraper.NewCachedEmployerSource(hh, rc, cfg.CacheTTL, logger)
		}
	}

	var snapshot *store.Snapshot
	if withSnapshot && cfg.SnapshotPath != "" {
		snapshot = store.NewSnapshot(cfg.SnapshotPath)
	}

	gateway := store.NewGateway(cfg.Postgres, logger)
	pipeline := core.NewPipeline(hh, employers, gateway, snapshot, logger)
	pipeline.AppendSnapshot(appendSnapshot)
	prompt := console.NewPrompter(os.Stdin, os.Stdout)

	text, err := prompt.Ask("Enter name of vacancy for search: ")
	if err != nil {
		return err
	}

	batch, err := pipeline.Collect(ctx, text)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d vacancies with salary from %d employers.\n", len(batch.Vacancies), len(batch.Employers))

	dbName, err := prompt.Ask("Input name of database: ")
	if err != nil {
		return err
	}
	if err := pipeline.Store(ctx, dbName, batch); err != nil {
		return err
	}
	fmt.Printf("Info about vacancies saved in database %s.\n", dbName)

	count, err := prompt.AskInt("How many vacancies show for you: ")
	if err != nil {
		return err
	}

	if keyword == "" {
		keyword = text
	}
	return console.RunReport(ctx, gateway, console.NewReporter(os.Stdout, count), dbName, keyword)
}
