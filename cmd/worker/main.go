package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/config"
	"github.com/tuanngo/cashbook/internal/extract"
	"github.com/tuanngo/cashbook/internal/jobs/inmemory"
	"github.com/tuanngo/cashbook/internal/logger"
	"github.com/tuanngo/cashbook/internal/pipeline"
	"github.com/tuanngo/cashbook/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "cashbook.toml", "Path to config file")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("A BigQuery project is required for the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bq, err := store.NewBigQueryStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer bq.Close()

	extractor := extract.NewGeminiExtractor(cfg.Gemini.Model)

	pipe := pipeline.New(bq, bq, extractor, log, pipeline.Config{
		Rate:      cfg.Ingest.ExchangeRate,
		MinAmount: decimal.NewFromInt(cfg.Ingest.AmountThreshold),
		Keywords:  cfg.Ingest.PersonnelKeywords,
	})

	// In-memory queue for now; a multi-instance deployment would swap in
	// Cloud Tasks or Pub/Sub behind the same interfaces.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	if err := jobQueue.Start(ctx, pipe.HandleScanJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker started, waiting for scan jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker exited")
}
