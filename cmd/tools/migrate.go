package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/config"
	"github.com/baxromumarov/hh-collector/internal/console"
	"github.com/baxromumarov/hh-collector/internal/observability"
	"github.com/baxromumarov/hh-collector/internal/store"
)

func main() {
	dbName := flag.String("db", "", "Database to work on")
	recreate := flag.Bool("recreate", false, "Drop and create the database and both tables")
	deleteVacancy := flag.String("delete-vacancy", "", "Delete vacancies with this exact name from the database and the snapshot")
	snapshotSearch := flag.String("snapshot-search", "", "Print snapshot vacancies whose name starts or ends with this keyword")
	limit := flag.Int("limit", 10, "Rows to print for -snapshot-search")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	snapshot := store.NewSnapshot(cfg.SnapshotPath)

	if *snapshotSearch != "" {
		n, err := console.SearchSnapshot(snapshot, console.NewReporter(os.Stdout, *limit), *snapshotSearch)
		if err != nil {
			logger.Fatal("failed to search snapshot", zap.Error(err))
		}
		logger.Info("snapshot searched", zap.String("keyword", *snapshotSearch), zap.Int("matched", n))
	}

	if !*recreate && *deleteVacancy == "" {
		return
	}
	if *dbName == "" {
		log.Fatal("-db is required with -recreate or -delete-vacancy")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	gateway := store.NewGateway(cfg.Postgres, logger)

	if *recreate {
		if err := gateway.CreateDatabase(ctx, *dbName); err != nil {
			logger.Fatal("failed to create database", zap.Error(err))
		}
		if err := gateway.CreateTables(ctx, *dbName); err != nil {
			logger.Fatal("failed to create tables", zap.Error(err))
		}
		logger.Info("schema created", zap.String("database", *dbName))
	}

	if *deleteVacancy != "" {
		deleted, err := gateway.DeleteVacancy(ctx, *dbName, *deleteVacancy)
		if err != nil {
			logger.Fatal("failed to delete vacancy", zap.Error(err))
		}
		removed, err := snapshot.DeleteByName(*deleteVacancy)
		if err != nil {
			logger.Fatal("failed to update snapshot", zap.Error(err))
		}
		logger.Info("vacancy deleted",
			zap.String("name", *deleteVacancy),
			zap.Int64("rows", deleted),
			zap.Int("snapshot_records", removed))
	}
}
