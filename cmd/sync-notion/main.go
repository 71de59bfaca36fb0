package main

import (
	"context"
	"flag"

	"github.com/tuanngo/cashbook/internal/config"
	"github.com/tuanngo/cashbook/internal/logger"
	"github.com/tuanngo/cashbook/internal/notionsync"
	"github.com/tuanngo/cashbook/internal/store"
)

// Mirrors the transaction table into a Notion database so the family can
// browse the cash book without touching BigQuery.
func main() {
	var (
		configPath = flag.String("config", "cashbook.toml", "Path to config file")
		dryRun     = flag.Bool("dry-run", false, "Report changes without writing to Notion")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("A BigQuery project is required")
	}
	if cfg.Notion.Token == "" || cfg.Notion.DatabaseID == "" {
		log.Fatal().Msg("Notion token and database id are required (set NOTION_TOKEN or the [notion] config section)")
	}

	ctx := logger.WithContext(context.Background(), log)

	bq, err := store.NewBigQueryStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer bq.Close()

	client := notionsync.NewNotionClient(cfg.Notion.Token)

	stats, err := notionsync.SyncTransactions(ctx, bq, client, cfg.Notion.DatabaseID, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Int("total", stats.Total).
		Bool("dry_run", *dryRun).
		Msg("Sync complete")
}
