package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

const importRunsTable = "import_runs"

// ImportRunRow is the BigQuery row shape of one ingestion batch audit
// record.
type ImportRunRow struct {
	RunID    string `bigquery:"run_id"`
	Source   string `bigquery:"source"`
	Filename string `bigquery:"filename"`
	Status   string `bigquery:"status"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	ErrorMessage string             `bigquery:"error_message"`
	Accepted     bigquery.NullInt64 `bigquery:"accepted"`
	Rejected     bigquery.NullInt64 `bigquery:"rejected"`
}

// StartRun inserts a RUNNING import-run row and returns its id.
func (s *BigQueryStore) StartRun(ctx context.Context, source, filename string) (string, error) {
	runID := uuid.NewString()

	row := &ImportRunRow{
		RunID:     runID,
		Source:    source,
		Filename:  filename,
		Status:    RunStatusRunning,
		StartedTS: time.Now(),
	}

	inserter := s.client.DatasetInProject(s.projectID, s.dataset).Table(importRunsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("StartRun: inserting row: %w", err)
	}
	return runID, nil
}

// MarkRunSucceeded finishes an import run with its accepted/rejected counts.
func (s *BigQueryStore) MarkRunSucceeded(ctx context.Context, runID string, accepted, rejected int) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    accepted = @accepted,
		    rejected = @rejected
		WHERE run_id = @run_id
	`, s.dataset, importRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "accepted", Value: int64(accepted)},
		{Name: "rejected", Value: int64(rejected)},
		{Name: "run_id", Value: runID},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// MarkRunFailed finishes an import run with a truncated error message.
func (s *BigQueryStore) MarkRunFailed(ctx context.Context, runID string, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, s.dataset, importRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkRunFailed: %w", err)
	}
	return nil
}

var _ ImportRunStore = (*BigQueryStore)(nil)
