package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/tuanngo/cashbook/internal/logger"
	"github.com/tuanngo/cashbook/internal/store"
)

// Stats summarizes one sync run.
type Stats struct {
	Created  int
	Updated  int
	Archived int
	Total    int
}

// SyncTransactions mirrors the transaction store into a Notion database.
// Pages are keyed on the TX ID column: missing transactions get new pages,
// existing ones are updated in place, and pages whose transaction no longer
// exists are archived. With dryRun set it only reports what it would do.
//
// Per-page failures are logged and skipped so one bad page cannot stall the
// whole mirror.
func SyncTransactions(ctx context.Context, txStore store.TransactionStore, svc NotionService, databaseID string, dryRun bool) (Stats, error) {
	log := logger.FromContext(ctx)
	var stats Stats

	txs, err := txStore.ListAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("SyncTransactions: listing transactions: %w", err)
	}
	stats.Total = len(txs)

	log.Info().
		Int("transactions", len(txs)).
		Bool("dry_run", dryRun).
		Msg("Starting Notion sync")

	pages, err := queryAllPages(ctx, svc, databaseID)
	if err != nil {
		return stats, fmt.Errorf("SyncTransactions: querying Notion pages: %w", err)
	}

	pageByTxID := make(map[int64]notionapi.Page)
	for _, page := range pages {
		if id := extractTxID(page); id > 0 {
			pageByTxID[id] = page
		}
	}

	valid := make(map[int64]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	// Archive pages whose transaction was deleted (or that never carried a
	// usable id).
	for _, page := range pages {
		id := extractTxID(page)
		if id > 0 && valid[id] {
			continue
		}
		if dryRun {
			log.Info().Int64("tx_id", id).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale page")
			stats.Archived++
			continue
		}
		if err := svc.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale page")
			continue
		}
		stats.Archived++
	}

	for _, tx := range txs {
		props := TransactionToNotionProperties(tx)
		existing, exists := pageByTxID[tx.ID]

		if dryRun {
			if exists {
				stats.Updated++
			} else {
				stats.Created++
			}
			continue
		}

		if exists {
			if _, err := svc.UpdatePage(ctx, string(existing.ID), props); err != nil {
				log.Warn().Err(err).Int64("tx_id", tx.ID).Msg("Failed to update Notion page")
				continue
			}
			stats.Updated++
		} else {
			if _, err := svc.CreatePage(ctx, databaseID, props); err != nil {
				log.Warn().Err(err).Int64("tx_id", tx.ID).Msg("Failed to create Notion page")
				continue
			}
			stats.Created++
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Msg("Notion sync finished")

	return stats, nil
}

// queryAllPages drains the database query through pagination.
func queryAllPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    100,
		}
		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}
