package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/tuanngo/cashbook/internal/domain"
)

const transactionsTable = "transactions"

// TransactionRow is the BigQuery row shape of a canonical transaction.
type TransactionRow struct {
	ID        int64      `bigquery:"id"`
	Date      civil.Date `bigquery:"date"`
	Type      string     `bigquery:"type"`
	Subject   string     `bigquery:"subject"`
	Amount    float64    `bigquery:"amount"`
	Currency  string     `bigquery:"currency"`
	Note      string     `bigquery:"note"`
	CreatedBy string     `bigquery:"created_by"`
	Source    string     `bigquery:"source"`

	OriginalAmount   bigquery.NullFloat64 `bigquery:"original_amount"`
	OriginalCurrency bigquery.NullString  `bigquery:"original_currency"`
	RateUsed         bigquery.NullInt64   `bigquery:"rate_used"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// BigQueryStore implements TransactionStore and ImportRunStore on a BigQuery
// dataset.
type BigQueryStore struct {
	client    *bigquery.Client
	projectID string
	dataset   string
}

// NewBigQueryStore creates a store bound to one project and dataset.
func NewBigQueryStore(ctx context.Context, projectID, dataset string) (*BigQueryStore, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryStore: bigquery client: %w", err)
	}
	return &BigQueryStore{client: client, projectID: projectID, dataset: dataset}, nil
}

// Close releases the underlying client.
func (s *BigQueryStore) Close() error {
	return s.client.Close()
}

func (s *BigQueryStore) Insert(ctx context.Context, tx domain.Transaction) error {
	return s.BulkInsert(ctx, []domain.Transaction{tx})
}

func (s *BigQueryStore) BulkInsert(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		row, err := rowFromTransaction(tx)
		if err != nil {
			return fmt.Errorf("BulkInsert: %w", err)
		}
		rows = append(rows, row)
	}

	inserter := s.client.DatasetInProject(s.projectID, s.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("BulkInsert: inserting %d rows: %w", len(rows), err)
	}
	return nil
}

func (s *BigQueryStore) Update(ctx context.Context, tx domain.Transaction) error {
	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return fmt.Errorf("Update: invalid date %q: %w", tx.Date, err)
	}
	amount, _ := tx.Amount.Float64()

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET date = @date,
		    type = @type,
		    subject = @subject,
		    amount = @amount,
		    currency = @currency,
		    note = @note
		WHERE id = @id
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "date", Value: date},
		{Name: "type", Value: string(tx.Type)},
		{Name: "subject", Value: tx.Subject},
		{Name: "amount", Value: amount},
		{Name: "currency", Value: string(tx.Currency)},
		{Name: "note", Value: tx.Note},
		{Name: "id", Value: tx.ID},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (s *BigQueryStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s.%s
		WHERE id IN UNNEST(@ids)
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "ids", Value: ids},
	}

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteByIDs: %w", err)
	}
	return affected, nil
}

func (s *BigQueryStore) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			id, date, type, subject, amount, currency, note,
			created_by, source, original_amount, original_currency,
			rate_used, created_ts
		FROM %s.%s
		ORDER BY date DESC, id DESC
	`, s.dataset, transactionsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAll: query read: %w", err)
	}

	var out []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAll: iter next: %w", err)
		}
		out = append(out, transactionFromRow(&row))
	}
	return out, nil
}

// runDML runs a DML query, waits for it, and reports affected rows.
func (s *BigQueryStore) runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return qs.NumDMLAffectedRows, nil
	}
	return 0, nil
}

func rowFromTransaction(tx domain.Transaction) (*TransactionRow, error) {
	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q on id %d: %w", tx.Date, tx.ID, err)
	}
	amount, _ := tx.Amount.Float64()

	row := &TransactionRow{
		ID:        tx.ID,
		Date:      date,
		Type:      string(tx.Type),
		Subject:   tx.Subject,
		Amount:    amount,
		Currency:  string(tx.Currency),
		Note:      tx.Note,
		CreatedBy: tx.CreatedBy,
		Source:    tx.Source,
		CreatedTS: time.Now(),
	}
	if tx.OriginalAmount != nil {
		orig, _ := tx.OriginalAmount.Float64()
		row.OriginalAmount = bigquery.NullFloat64{Float64: orig, Valid: true}
		row.OriginalCurrency = bigquery.NullString{StringVal: string(tx.OriginalCurrency), Valid: true}
		row.RateUsed = bigquery.NullInt64{Int64: tx.RateUsed, Valid: true}
	}
	return row, nil
}

func transactionFromRow(row *TransactionRow) domain.Transaction {
	tx := domain.Transaction{
		ID:        row.ID,
		Date:      row.Date.String(),
		Type:      domain.TxType(row.Type),
		Subject:   row.Subject,
		Amount:    decimal.NewFromFloat(row.Amount),
		Currency:  domain.Currency(row.Currency),
		Note:      row.Note,
		CreatedBy: row.CreatedBy,
		Source:    row.Source,
	}
	if row.OriginalAmount.Valid {
		orig := decimal.NewFromFloat(row.OriginalAmount.Float64)
		tx.OriginalAmount = &orig
		tx.OriginalCurrency = domain.Currency(row.OriginalCurrency.StringVal)
		tx.RateUsed = row.RateUsed.Int64
	}
	return tx
}

var _ TransactionStore = (*BigQueryStore)(nil)
