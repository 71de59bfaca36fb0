package store

import (
	"context"
	"time"

	"github.com/tuanngo/cashbook/internal/domain"
)

// TransactionStore is the persistence collaborator of the ingestion core: an
// append/update/delete store keyed by transaction id. The core only calls
// Insert/BulkInsert/DeleteByIDs in loops and never assumes multi-row
// atomicity from the implementation.
type TransactionStore interface {
	Insert(ctx context.Context, tx domain.Transaction) error
	BulkInsert(ctx context.Context, txs []domain.Transaction) error

	// Update replaces the mutable fields of the record with tx.ID.
	Update(ctx context.Context, tx domain.Transaction) error

	// DeleteByIDs removes exactly the given ids and reports how many rows
	// went away. Used by batch rollback; not a true transaction.
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)

	// ListAll returns every transaction ordered by date descending, then id
	// descending.
	ListAll(ctx context.Context) ([]domain.Transaction, error)
}

// RunStatus values for import-run audit records.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// ImportRun is one audited ingestion batch: a spreadsheet import or an image
// scan batch.
type ImportRun struct {
	RunID      string
	Source     string // "sheet" or "scan"
	Filename   string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
	Accepted   int
	Rejected   int
}

// ImportRunStore records the lifecycle of ingestion batches for audit.
type ImportRunStore interface {
	StartRun(ctx context.Context, source, filename string) (string, error)
	MarkRunSucceeded(ctx context.Context, runID string, accepted, rejected int) error
	MarkRunFailed(ctx context.Context, runID string, runErr error) error
}
