package main

import (
	"context"
	"errors"
	"flag"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"

	"github.com/tuanngo/cashbook/internal/config"
	"github.com/tuanngo/cashbook/internal/logger"
)

// Creates the BigQuery dataset and tables the cash book needs. Safe to run
// repeatedly; existing objects are left alone.
func main() {
	var (
		configPath = flag.String("config", "cashbook.toml", "Path to config file")
		location   = flag.String("location", "asia-southeast1", "BigQuery dataset location")
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

	ctx := context.Background()

	client, err := bigquery.NewClient(ctx, cfg.BigQuery.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	dataset := client.Dataset(cfg.BigQuery.Dataset)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: *location}); err != nil {
		if !alreadyExists(err) {
			log.Fatal().Err(err).Str("dataset", cfg.BigQuery.Dataset).Msg("Failed to create dataset")
		}
		log.Info().Str("dataset", cfg.BigQuery.Dataset).Msg("Dataset already exists")
	} else {
		log.Info().Str("dataset", cfg.BigQuery.Dataset).Msg("Created dataset")
	}

	transactionsSchema := bigquery.Schema{
		{Name: "id", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "date", Type: bigquery.DateFieldType, Required: true},
		{Name: "type", Type: bigquery.StringFieldType, Required: true},
		{Name: "subject", Type: bigquery.StringFieldType, Required: true},
		{Name: "amount", Type: bigquery.FloatFieldType, Required: true},
		{Name: "currency", Type: bigquery.StringFieldType, Required: true},
		{Name: "note", Type: bigquery.StringFieldType},
		{Name: "created_by", Type: bigquery.StringFieldType},
		{Name: "source", Type: bigquery.StringFieldType},
		{Name: "original_amount", Type: bigquery.FloatFieldType},
		{Name: "original_currency", Type: bigquery.StringFieldType},
		{Name: "rate_used", Type: bigquery.IntegerFieldType},
		{Name: "created_ts", Type: bigquery.TimestampFieldType, Required: true},
	}

	importRunsSchema := bigquery.Schema{
		{Name: "run_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "source", Type: bigquery.StringFieldType, Required: true},
		{Name: "filename", Type: bigquery.StringFieldType},
		{Name: "status", Type: bigquery.StringFieldType, Required: true},
		{Name: "started_ts", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "finished_ts", Type: bigquery.TimestampFieldType},
		{Name: "error_message", Type: bigquery.StringFieldType},
		{Name: "accepted", Type: bigquery.IntegerFieldType},
		{Name: "rejected", Type: bigquery.IntegerFieldType},
	}

	ensureTable(ctx, log, dataset, "transactions", transactionsSchema)
	ensureTable(ctx, log, dataset, "import_runs", importRunsSchema)

	log.Info().Msg("Migration finished")
}

func ensureTable(ctx context.Context, log zerolog.Logger, dataset *bigquery.Dataset, name string, schema bigquery.Schema) {
	if err := dataset.Table(name).Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		if !alreadyExists(err) {
			log.Fatal().Err(err).Str("table", name).Msg("Failed to create table")
		}
		log.Info().Str("table", name).Msg("Table already exists")
		return
	}
	log.Info().Str("table", name).Msg("Created table")
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusConflict
	}
	return false
}
