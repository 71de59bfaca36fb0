package main

import (
	"context"
	"flag"
	"os"

	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/config"
	"github.com/tuanngo/cashbook/internal/extract"
	"github.com/tuanngo/cashbook/internal/logger"
	"github.com/tuanngo/cashbook/internal/pipeline"
	"github.com/tuanngo/cashbook/internal/sheet"
	"github.com/tuanngo/cashbook/internal/store"
)

// Imports one spreadsheet from the command line, for backfills and testing
// without the API server.
func main() {
	var (
		configPath = flag.String("config", "cashbook.toml", "Path to config file")
		filePath   = flag.String("file", "", "Path to the .xlsx file to import (required)")
		createdBy  = flag.String("created-by", "", "Who to record as the creator")
		dryRun     = flag.Bool("dry-run", false, "Normalize and report without inserting")
	)
	flag.Parse()

	log := logger.New()

	if *filePath == "" {
		log.Fatal().Msg("-file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.BigQuery.ProjectID == "" && !*dryRun {
		log.Fatal().Msg("A BigQuery project is required for ingestion")
	}

	ctx := context.Background()

	// Dry runs never write, so they run against the in-memory store and
	// need no warehouse credentials.
	var txStore store.TransactionStore
	var runStore store.ImportRunStore
	if *dryRun {
		mem := store.NewMemoryStore()
		txStore, runStore = mem, mem
	} else {
		bq, err := store.NewBigQueryStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bq.Close()
		txStore, runStore = bq, bq
	}

	pipe := pipeline.New(txStore, runStore, extract.NewGeminiExtractor(cfg.Gemini.Model), log, pipeline.Config{
		Rate:      cfg.Ingest.ExchangeRate,
		MinAmount: decimal.NewFromInt(cfg.Ingest.AmountThreshold),
		Keywords:  cfg.Ingest.PersonnelKeywords,
	})

	var result *pipeline.BatchResult
	if *dryRun {
		rows, err := sheet.ReadRows(*filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read sheet")
		}
		result = pipe.Preview(rows, *createdBy)
	} else {
		f, err := os.Open(*filePath)
		if err != nil {
			log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to open sheet")
		}
		defer f.Close()

		result, err = pipe.ImportSheet(ctx, f, *filePath, *createdBy)
		if err != nil {
			log.Fatal().Err(err).Msg("Sheet import failed")
		}
	}

	for _, rej := range result.Rejected {
		log.Warn().Int("row", rej.Row).Str("reason", rej.Reason).Msg("Row rejected")
	}

	log.Info().
		Int("accepted", len(result.Accepted)).
		Int("rejected", len(result.Rejected)).
		Bool("dry_run", *dryRun).
		Msg("Import finished")
}
