// Package main provides the gas data pipeline service: registry-driven
// ingestion of European gas-market time series from National Gas, ENTSOG and
// GIE, exposed over an HTTP trigger API with a cron scheduler for the
// recurring jobs.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/litshivang/gas-data-pipeline/internal/adapters"
	"github.com/litshivang/gas-data-pipeline/internal/api"
	"github.com/litshivang/gas-data-pipeline/internal/config"
	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
	"github.com/litshivang/gas-data-pipeline/internal/metrics"
	"github.com/litshivang/gas-data-pipeline/internal/scheduler"
	"github.com/litshivang/gas-data-pipeline/internal/storage"
)

const (
	version = "2.0.0"
	name    = "gaspipe"

	startupTimeout = 10 * time.Second
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting gas data pipeline service",
		slog.String("service", name),
		slog.String("version", version),
	)

	storageConfig := storage.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	dbConn, err := storage.NewConnection(ctx, storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database",
			slog.String("database_url", storageConfig.MaskDatabaseURL()),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close()
	}()

	logger.Info("Database connection established",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
	)

	datasetConfigs, err := config.LoadDatasetConfigs(config.GetEnvStr("DATASET_CONFIG_PATH", "datasets.yaml"))
	if err != nil {
		logger.Error("Failed to load dataset configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := ingestion.NewRegistry()
	adapters.RegisterAll(registry, nil, config.GetEnvStr("GIE_API_KEY", ""))

	logger.Info("Adapter registry populated", slog.Any("datasets", registry.List()))

	journal := storage.NewRunJournal(dbConn)

	stores := ingestion.Stores{
		Journal:      journal,
		Raw:          storage.NewRawStore(dbConn),
		Fields:       storage.NewFieldCatalog(dbConn),
		Series:       storage.NewSeriesCatalog(dbConn),
		Observations: storage.NewObservationStore(dbConn),
		GIE:          storage.NewGIEDailyStore(dbConn),
	}

	recorder := metrics.NewRecorder()

	orch := ingestion.NewOrchestrator(registry, stores, datasetConfigs,
		ingestion.WithMetrics(recorder),
		ingestion.WithLogger(logger),
	)

	pool := ingestion.NewPool(orch, config.GetEnvInt("INGEST_WORKERS", 0))

	sched := scheduler.New(pool)
	if err := sched.Start(); err != nil {
		logger.Error("Failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer sched.Stop()

	server := api.NewServer(serverConfig, pool, journal, dbConn, recorder.Handler(), version)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Gas data pipeline service stopped")
}
