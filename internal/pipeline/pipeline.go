package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/domain"
	"github.com/tuanngo/cashbook/internal/extract"
	"github.com/tuanngo/cashbook/internal/gcsuploader"
	"github.com/tuanngo/cashbook/internal/normalize"
	"github.com/tuanngo/cashbook/internal/sheet"
	"github.com/tuanngo/cashbook/internal/store"
)

// minMappedColumns is how many header columns must match before a sheet is
// trusted as structured; below that the headerless heuristics take over.
const minMappedColumns = 2

// Config carries the batch-level tunables of ingestion.
type Config struct {
	// Rate is the USD to VND conversion rate applied batch-wide.
	Rate int64

	// MinAmount is the heuristic classifier's amount floor.
	MinAmount decimal.Decimal

	// Keywords tag personnel/labor rows.
	Keywords []string
}

// AcceptedRow is one normalized transaction plus its batch provenance.
type AcceptedRow struct {
	Tx domain.Transaction

	// Row is the 1-based sheet row, or 0 for image items.
	Row int

	// Personnel is the advisory labor-spending flag.
	Personnel bool
}

// Rejection records one item the batch could not normalize. Rejections never
// abort a batch.
type Rejection struct {
	// Row is the 1-based sheet row, or 0 for image items.
	Row int

	// Item names the source item, the original filename for images.
	Item string

	Reason string
}

// BatchResult is the full outcome of one ingestion batch: everything that
// made it through and everything that did not, side by side.
type BatchResult struct {
	Accepted []AcceptedRow
	Rejected []Rejection
}

// Pipeline wires extraction, normalization and persistence into the
// ingestion flows. One Pipeline serves many batches.
type Pipeline struct {
	store     store.TransactionStore
	runs      store.ImportRunStore
	extractor extract.Extractor
	log       zerolog.Logger
	cfg       Config
	ids       *normalize.IDGenerator

	// upload, fetch and remove default to the GCS implementations; tests
	// stub them.
	upload func(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
	fetch  func(ctx context.Context, gcsURI string) ([]byte, error)
	remove func(ctx context.Context, gcsURI string) error
}

// New builds a Pipeline over the given stores and extractor.
func New(txStore store.TransactionStore, runStore store.ImportRunStore, ex extract.Extractor, log zerolog.Logger, cfg Config) *Pipeline {
	return &Pipeline{
		store:     txStore,
		runs:      runStore,
		extractor: ex,
		log:       log,
		cfg:       cfg,
		ids:       normalize.NewIDGenerator(time.Now()),
		upload: func(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
			return gcsuploader.Upload(ctx, bucket, object, contentType, bytes.NewReader(data))
		},
		fetch:  gcsuploader.Fetch,
		remove: gcsuploader.Delete,
	}
}

// ImportSheet ingests one spreadsheet: reads the first sheet, picks the
// mapped or heuristic row path, normalizes every row, bulk-inserts the
// survivors and audits the run. Row failures become rejections; only
// infrastructure failures return an error.
func (p *Pipeline) ImportSheet(ctx context.Context, r io.Reader, filename, createdBy string) (*BatchResult, error) {
	rows, err := sheet.ReadRowsFrom(r)
	if err != nil {
		return nil, fmt.Errorf("ImportSheet: reading sheet: %w", err)
	}
	return p.ImportRows(ctx, rows, filename, createdBy)
}

// ImportRows is the row-level half of ImportSheet; it also serves callers
// that already hold raw rows.
func (p *Pipeline) ImportRows(ctx context.Context, rows [][]string, filename, createdBy string) (*BatchResult, error) {
	runID, err := p.runs.StartRun(ctx, "sheet", filename)
	if err != nil {
		return nil, fmt.Errorf("ImportRows: starting run: %w", err)
	}

	result := p.normalizeRows(rows, createdBy)

	txs := make([]domain.Transaction, 0, len(result.Accepted))
	for _, a := range result.Accepted {
		txs = append(txs, a.Tx)
	}
	if err := p.store.BulkInsert(ctx, txs); err != nil {
		_ = p.runs.MarkRunFailed(ctx, runID, err)
		return nil, fmt.Errorf("ImportRows: inserting transactions: %w", err)
	}

	if err := p.runs.MarkRunSucceeded(ctx, runID, len(result.Accepted), len(result.Rejected)); err != nil {
		return nil, fmt.Errorf("ImportRows: finishing run: %w", err)
	}

	p.log.Info().
		Str("run_id", runID).
		Str("filename", filename).
		Int("accepted", len(result.Accepted)).
		Int("rejected", len(result.Rejected)).
		Msg("sheet import finished")

	return result, nil
}

// Preview normalizes rows without touching the store or the run audit, for
// dry-run imports.
func (p *Pipeline) Preview(rows [][]string, createdBy string) *BatchResult {
	return p.normalizeRows(rows, createdBy)
}

// normalizeRows folds every row into the batch result. A header row that
// maps at least minMappedColumns selects the structured path; otherwise each
// row goes through the headerless classifier.
func (p *Pipeline) normalizeRows(rows [][]string, createdBy string) *BatchResult {
	nctx := normalize.Context{
		Now:       time.Now(),
		CreatedBy: createdBy,
		Source:    "sheet",
		Rate:      p.cfg.Rate,
		IDs:       p.ids,
	}
	result := &BatchResult{}
	if len(rows) == 0 {
		return result
	}

	if m := sheet.BuildColumnMap(rows[0]); m.Matched() >= minMappedColumns {
		for i, row := range rows[1:] {
			rowNum := i + 2
			raw := sheet.MapRow(row, m)
			tx, err := normalize.Normalize(raw, nctx)
			if err != nil {
				if !blankRow(row) {
					result.Rejected = append(result.Rejected, Rejection{Row: rowNum, Reason: err.Error()})
				}
				continue
			}
			result.Accepted = append(result.Accepted, AcceptedRow{
				Tx:        tx,
				Row:       rowNum,
				Personnel: mentionsAny(row, p.cfg.Keywords),
			})
		}
		return result
	}

	cls := sheet.Classifier{MinAmount: p.cfg.MinAmount, Keywords: p.cfg.Keywords}
	for i, row := range rows {
		rowNum := i + 1
		res := cls.Classify(row)
		if !res.Accepted {
			// Blank rows are noise, not data worth reporting.
			if res.SkipReason != sheet.SkipBlank {
				result.Rejected = append(result.Rejected, Rejection{Row: rowNum, Reason: res.SkipReason})
			}
			continue
		}

		tx, err := normalize.Normalize(domain.RawFields{
			Subject: res.Subject,
			Note:    res.Note,
			Amount:  res.Amount,
		}, nctx)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Row: rowNum, Reason: err.Error()})
			continue
		}
		result.Accepted = append(result.Accepted, AcceptedRow{Tx: tx, Row: rowNum, Personnel: res.Personnel})
	}
	return result
}

// CreateManual normalizes and stores one manually entered transaction.
// Manual entry is the only path that trusts an explicit zero amount.
func (p *Pipeline) CreateManual(ctx context.Context, raw domain.RawFields) (domain.Transaction, error) {
	tx, err := normalize.Normalize(raw, normalize.Context{
		Now:             time.Now(),
		Source:          "manual",
		TrustZeroAmount: true,
		Rate:            p.cfg.Rate,
		IDs:             p.ids,
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := p.store.Insert(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("CreateManual: %w", err)
	}
	return tx, nil
}

// BuildUpdate normalizes edited fields onto an existing transaction id
// without storing anything; the caller decides how to persist.
func (p *Pipeline) BuildUpdate(id int64, raw domain.RawFields) (domain.Transaction, error) {
	tx, err := normalize.Normalize(raw, normalize.Context{
		Now:             time.Now(),
		Source:          "manual",
		TrustZeroAmount: true,
		Rate:            p.cfg.Rate,
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

// Rollback deletes previously inserted transactions by id and reports how
// many actually existed.
func (p *Pipeline) Rollback(ctx context.Context, ids []int64) (int64, error) {
	deleted, err := p.store.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("Rollback: %w", err)
	}
	p.log.Info().Int("requested", len(ids)).Int64("deleted", deleted).Msg("rollback finished")
	return deleted, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func mentionsAny(row []string, keywords []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	for _, kw := range keywords {
		if kw != "" && strings.Contains(joined, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
