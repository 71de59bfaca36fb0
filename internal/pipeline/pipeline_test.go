package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/domain"
	"github.com/tuanngo/cashbook/internal/jobs"
	"github.com/tuanngo/cashbook/internal/store"
)

// fakeExtractor returns canned fields, or an error when the image payload
// is literally "bad".
type fakeExtractor struct {
	fields domain.RawFields
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) (domain.RawFields, error) {
	if string(image) == "bad" {
		return domain.RawFields{}, errors.New("model returned garbage")
	}
	return f.fields, nil
}

func testConfig() Config {
	return Config{
		Rate:      25500,
		MinAmount: decimal.NewFromInt(10000),
		Keywords:  []string{"lương", "nhân công", "thợ"},
	}
}

func newTestPipeline(ex *fakeExtractor) (*Pipeline, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	p := New(mem, mem, ex, zerolog.Nop(), testConfig())
	return p, mem
}

func TestImportRowsMappedPath(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(&fakeExtractor{})

	rows := [][]string{
		{"Ngày", "Loại", "Nội dung", "Số tiền", "Ghi chú"},
		{"2026-03-10", "Chi", "Mua xi măng", "1.500.000", "đợt 1"},
		{"46023", "Thu", "Ứng tiền chủ nhà", "2,000,000", ""},
		{"", "", "", "5.000", ""},
		{"", "", "", "", ""},
	}

	result, err := p.ImportRows(ctx, rows, "so_chi_tieu.xlsx", "ngan")
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(result.Accepted))
	}
	first := result.Accepted[0].Tx
	if first.Date != "2026-03-10" || first.Type != domain.TypeExpense {
		t.Errorf("first = %s %s", first.Date, first.Type)
	}
	if !first.Amount.Equal(decimal.NewFromInt(1500000)) {
		t.Errorf("first.Amount = %s", first.Amount)
	}
	if first.Note != "đợt 1" || first.CreatedBy != "ngan" || first.Source != "sheet" {
		t.Errorf("first = %+v", first)
	}

	second := result.Accepted[1].Tx
	if second.Date != "2026-01-01" || second.Type != domain.TypeIncome {
		t.Errorf("second = %s %s", second.Date, second.Type)
	}

	// The subject-less row is rejected; the fully blank row is dropped
	// without comment.
	if len(result.Rejected) != 1 || result.Rejected[0].Row != 4 {
		t.Fatalf("rejected = %+v", result.Rejected)
	}

	all, _ := mem.ListAll(ctx)
	if len(all) != 2 {
		t.Errorf("stored = %d, want 2", len(all))
	}
}

func TestImportRowsHeuristicBatchIsolation(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(&fakeExtractor{})

	// No recognizable header: every row goes through the classifier. Row 3
	// has no amount and must not take the rest of the batch down with it.
	rows := [][]string{
		{"1", "Mua gạch ống", "5.000.000"},
		{"2", "Lương thợ tháng 3", "15.000.000"},
		{"3", "ghi chú không có số", ""},
		{"4", "Xi măng Hà Tiên", "2.500.000đ"},
		{"5", "Cát san lấp", "1.200.000"},
	}

	result, err := p.ImportRows(ctx, rows, "chi_phi.xlsx", "")
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Accepted) != 4 {
		t.Fatalf("accepted = %d, want 4", len(result.Accepted))
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("rejected = %+v", result.Rejected)
	}
	if result.Rejected[0].Row != 3 {
		t.Errorf("rejected row = %d, want 3", result.Rejected[0].Row)
	}

	if !result.Accepted[1].Personnel {
		t.Error("salary row must carry the personnel flag")
	}
	if result.Accepted[0].Personnel {
		t.Error("materials row must not carry the personnel flag")
	}

	all, _ := mem.ListAll(ctx)
	if len(all) != 4 {
		t.Errorf("stored = %d, want 4", len(all))
	}
	for _, tx := range all {
		if tx.CreatedBy != "unknown" {
			t.Errorf("CreatedBy = %q, want unknown", tx.CreatedBy)
		}
	}
}

func TestScanBatchPerImageErrors(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(&fakeExtractor{
		fields: domain.RawFields{
			Date:    "2026-08-20",
			Type:    "Chi",
			Subject: "Cà phê tiếp khách",
			Amount:  "45.000",
		},
	})

	items := []ScanItem{
		{Filename: "receipt1.jpg", MimeType: "image/jpeg", Data: []byte("ok")},
		{Filename: "receipt2.jpg", MimeType: "image/jpeg", Data: []byte("bad")},
	}

	result, err := p.ScanBatch(ctx, items, "ngan")
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(result.Accepted))
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Item != "receipt2.jpg" {
		t.Fatalf("rejected = %+v", result.Rejected)
	}

	tx := result.Accepted[0].Tx
	if !tx.Amount.Equal(decimal.NewFromInt(45000)) || tx.Source != "scan" {
		t.Errorf("tx = %+v", tx)
	}

	all, _ := mem.ListAll(ctx)
	if len(all) != 1 {
		t.Errorf("stored = %d, want 1", len(all))
	}
}

func TestHandleScanJobCleansUpStagedImage(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(&fakeExtractor{
		fields: domain.RawFields{Subject: "Vật tư điện", Amount: "320.000"},
	})

	var removed []string
	p.fetch = func(ctx context.Context, uri string) ([]byte, error) {
		return []byte("ok"), nil
	}
	p.remove = func(ctx context.Context, uri string) error {
		removed = append(removed, uri)
		return nil
	}

	job := &jobs.ScanImageJob{
		JobID:      "job-1",
		GCSURI:     "gs://bucket/scans/a.jpg",
		Filename:   "a.jpg",
		MimeType:   "image/jpeg",
		MaxRetries: 3,
	}
	if err := p.HandleScanJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != job.GCSURI {
		t.Errorf("removed = %v", removed)
	}

	all, _ := mem.ListAll(ctx)
	if len(all) != 1 {
		t.Errorf("stored = %d, want 1", len(all))
	}
}

func TestHandleScanJobKeepsImageForRetry(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(&fakeExtractor{})

	var removed []string
	p.fetch = func(ctx context.Context, uri string) ([]byte, error) {
		return []byte("bad"), nil
	}
	p.remove = func(ctx context.Context, uri string) error {
		removed = append(removed, uri)
		return nil
	}

	job := &jobs.ScanImageJob{
		JobID:      "job-2",
		GCSURI:     "gs://bucket/scans/b.jpg",
		Filename:   "b.jpg",
		MaxRetries: 3,
	}

	// Retryable failure: the staged object stays for the next attempt.
	if err := p.HandleScanJob(ctx, job); err == nil {
		t.Fatal("want extraction error")
	}
	if len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}

	// Terminal failure: nothing will re-fetch it, so clean up.
	job.RetryCount = job.MaxRetries
	if err := p.HandleScanJob(ctx, job); err == nil {
		t.Fatal("want extraction error")
	}
	if len(removed) != 1 {
		t.Errorf("removed = %v, want one entry", removed)
	}
}
