package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration. A missing config file yields
// the defaults; secrets can additionally be supplied via environment
// variables so they never have to live in the file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Ingest   IngestConfig   `toml:"ingest"`
	Gemini   GeminiConfig   `toml:"gemini"`
	BigQuery BigQueryConfig `toml:"bigquery"`
	GCS      GCSConfig      `toml:"gcs"`
	Notion   NotionConfig   `toml:"notion"`
}

type ServerConfig struct {
	Addr   string `toml:"addr"`
	APIKey string `toml:"api_key"` // empty disables API-key auth
}

// IngestConfig holds the tunables of the normalization core. The amount
// threshold and keyword list are locale-specific (VND cash book vocabulary)
// and deliberately configurable rather than hardcoded.
type IngestConfig struct {
	// ExchangeRate is the USD -> VND conversion rate applied uniformly to
	// every foreign-currency amount in this process.
	ExchangeRate int64 `toml:"exchange_rate"`

	// AmountThreshold is the smallest cell value the headerless row
	// classifier accepts as a transaction amount.
	AmountThreshold int64 `toml:"amount_threshold"`

	// PersonnelKeywords tag rows as labor/personnel spending when any of
	// them appears in the row text.
	PersonnelKeywords []string `toml:"personnel_keywords"`
}

type GeminiConfig struct {
	Model string `toml:"model"`
}

type BigQueryConfig struct {
	ProjectID string `toml:"project_id"`
	Dataset   string `toml:"dataset"`
}

type GCSConfig struct {
	Bucket string `toml:"bucket"`
}

type NotionConfig struct {
	Token      string `toml:"token"`
	DatabaseID string `toml:"database_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Ingest: IngestConfig{
			ExchangeRate:    25500,
			AmountThreshold: 10000,
			PersonnelKeywords: []string{
				"lương", "nhân công", "nhân sự", "thợ", "công nhân",
				"salary", "labor", "wage",
			},
		},
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash"},
		BigQuery: BigQueryConfig{Dataset: "cashbook"},
		GCS:      GCSConfig{},
		Notion:   NotionConfig{},
	}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist. Invalid tunables are reset to their defaults rather than
// rejected, so a bad edit cannot take ingestion down.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Default(), fmt.Errorf("config.Load: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Default(), fmt.Errorf("config.Load: read %s: %w", path, err)
		}
	}

	cfg = normalize(cfg)
	applyEnv(&cfg)
	return cfg, nil
}

func normalize(cfg Config) Config {
	def := Default()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Ingest.ExchangeRate <= 0 {
		cfg.Ingest.ExchangeRate = def.Ingest.ExchangeRate
	}
	if cfg.Ingest.AmountThreshold <= 0 {
		cfg.Ingest.AmountThreshold = def.Ingest.AmountThreshold
	}
	if len(cfg.Ingest.PersonnelKeywords) == 0 {
		cfg.Ingest.PersonnelKeywords = def.Ingest.PersonnelKeywords
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = def.Gemini.Model
	}
	if cfg.BigQuery.Dataset == "" {
		cfg.BigQuery.Dataset = def.BigQuery.Dataset
	}

	keywords := make([]string, 0, len(cfg.Ingest.PersonnelKeywords))
	for _, k := range cfg.Ingest.PersonnelKeywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	cfg.Ingest.PersonnelKeywords = keywords

	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CASHBOOK_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("CASHBOOK_BQ_PROJECT"); v != "" {
		cfg.BigQuery.ProjectID = v
	}
	if v := os.Getenv("CASHBOOK_GCS_BUCKET"); v != "" {
		cfg.GCS.Bucket = v
	}
	if v := os.Getenv("NOTION_TOKEN"); v != "" {
		cfg.Notion.Token = v
	}
}
