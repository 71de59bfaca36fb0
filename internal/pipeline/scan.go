package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuanngo/cashbook/internal/domain"
	"github.com/tuanngo/cashbook/internal/jobs"
	"github.com/tuanngo/cashbook/internal/normalize"
)

// ScanItem is one uploaded receipt image held in memory.
type ScanItem struct {
	Filename string
	MimeType string
	Data     []byte
}

// ScanBatch extracts and ingests a batch of receipt images synchronously.
// Each image fails independently; rejections are keyed by the original
// filename so the caller can tell the user which photo to retake.
func (p *Pipeline) ScanBatch(ctx context.Context, items []ScanItem, createdBy string) (*BatchResult, error) {
	runID, err := p.runs.StartRun(ctx, "scan", fmt.Sprintf("%d image(s)", len(items)))
	if err != nil {
		return nil, fmt.Errorf("ScanBatch: starting run: %w", err)
	}

	nctx := normalize.Context{
		Now:         time.Now(),
		CreatedBy:   createdBy,
		Source:      "scan",
		AIExtracted: true,
		Rate:        p.cfg.Rate,
		IDs:         p.ids,
	}

	result := &BatchResult{}
	for _, item := range items {
		raw, err := p.extractor.Extract(ctx, item.Data, item.MimeType)
		if err != nil {
			p.log.Warn().Err(err).Str("filename", item.Filename).Msg("image extraction failed")
			result.Rejected = append(result.Rejected, Rejection{Item: item.Filename, Reason: err.Error()})
			continue
		}

		tx, err := normalize.Normalize(raw, nctx)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Item: item.Filename, Reason: err.Error()})
			continue
		}
		result.Accepted = append(result.Accepted, AcceptedRow{
			Tx:        tx,
			Personnel: mentionsAny([]string{tx.Subject, tx.Note}, p.cfg.Keywords),
		})
	}

	txs := make([]domain.Transaction, 0, len(result.Accepted))
	for _, a := range result.Accepted {
		txs = append(txs, a.Tx)
	}
	if err := p.store.BulkInsert(ctx, txs); err != nil {
		_ = p.runs.MarkRunFailed(ctx, runID, err)
		return nil, fmt.Errorf("ScanBatch: %w", err)
	}

	if err := p.runs.MarkRunSucceeded(ctx, runID, len(result.Accepted), len(result.Rejected)); err != nil {
		return nil, fmt.Errorf("ScanBatch: finishing run: %w", err)
	}

	p.log.Info().
		Str("run_id", runID).
		Int("accepted", len(result.Accepted)).
		Int("rejected", len(result.Rejected)).
		Msg("image scan batch finished")

	return result, nil
}

// StageImage uploads an image to the scan bucket and publishes a job for
// the worker. Returns the job so callers can report its id.
func (p *Pipeline) StageImage(ctx context.Context, bucket string, item ScanItem, pub jobs.Publisher, runID string) (*jobs.ScanImageJob, error) {
	object := scanObjectName(item.Filename)
	uri, err := p.upload(ctx, bucket, object, item.MimeType, item.Data)
	if err != nil {
		return nil, fmt.Errorf("StageImage: %w", err)
	}

	job := &jobs.ScanImageJob{
		RunID:    runID,
		GCSURI:   uri,
		Filename: item.Filename,
		MimeType: item.MimeType,
	}
	if err := pub.PublishScanImage(ctx, job); err != nil {
		// Publishing failed; the staged object would otherwise leak.
		_ = p.remove(ctx, uri)
		return nil, fmt.Errorf("StageImage: publishing job: %w", err)
	}
	return job, nil
}

// HandleScanJob is the worker-side JobHandler: fetch the staged image,
// extract, normalize, insert. The staged object is removed on success and on
// terminal failure; retryable failures keep it so the retry can re-fetch.
func (p *Pipeline) HandleScanJob(ctx context.Context, job jobs.Job) error {
	scan, ok := job.(*jobs.ScanImageJob)
	if !ok {
		return fmt.Errorf("HandleScanJob: unexpected job type %s", job.GetType())
	}

	err := p.processScanJob(ctx, scan)
	if err == nil || scan.RetryCount >= scan.MaxRetries {
		if rmErr := p.remove(ctx, scan.GCSURI); rmErr != nil {
			p.log.Warn().Err(rmErr).Str("gcs_uri", scan.GCSURI).Msg("staged image cleanup failed")
		}
	}
	return err
}

func (p *Pipeline) processScanJob(ctx context.Context, scan *jobs.ScanImageJob) error {
	data, err := p.fetch(ctx, scan.GCSURI)
	if err != nil {
		return fmt.Errorf("fetching staged image %s: %w", scan.Filename, err)
	}

	raw, err := p.extractor.Extract(ctx, data, scan.MimeType)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", scan.Filename, err)
	}

	tx, err := normalize.Normalize(raw, normalize.Context{
		Now:         time.Now(),
		Source:      "scan",
		AIExtracted: true,
		Rate:        p.cfg.Rate,
		IDs:         p.ids,
	})
	if err != nil {
		return fmt.Errorf("normalizing %s: %w", scan.Filename, err)
	}

	if err := p.store.Insert(ctx, tx); err != nil {
		return fmt.Errorf("inserting transaction from %s: %w", scan.Filename, err)
	}

	p.log.Info().
		Str("job_id", scan.JobID).
		Str("filename", scan.Filename).
		Int64("tx_id", tx.ID).
		Msg("scan job finished")
	return nil
}

func scanObjectName(filename string) string {
	return fmt.Sprintf("scans/%s/%s-%s", time.Now().Format("2006/01"), uuid.NewString(), filename)
}
