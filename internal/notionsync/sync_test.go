package notionsync

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/domain"
	"github.com/tuanngo/cashbook/internal/store"
)

type fakeNotion struct {
	pages    []notionapi.Page
	created  []notionapi.Properties
	updated  map[string]notionapi.Properties
	archived []string
}

func (f *fakeNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	f.created = append(f.created, props)
	return &notionapi.Page{ID: notionapi.ObjectID("new-page")}, nil
}

func (f *fakeNotion) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	if f.updated == nil {
		f.updated = make(map[string]notionapi.Properties)
	}
	f.updated[pageID] = props
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{Results: f.pages, HasMore: false}, nil
}

func (f *fakeNotion) ArchivePage(ctx context.Context, pageID string) error {
	f.archived = append(f.archived, pageID)
	return nil
}

func pageWithTxID(pageID, txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			txIDProperty: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{
					{
						Type:      notionapi.ObjectTypeText,
						Text:      &notionapi.Text{Content: txID},
						PlainText: txID,
					},
				},
			},
		},
	}
}

func seedStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	mem := store.NewMemoryStore()
	ctx := context.Background()

	for i, subject := range []string{"Mua sắt hộp", "Lương thợ tuần 2"} {
		err := mem.Insert(ctx, domain.Transaction{
			ID:       int64(i + 1),
			Date:     "2026-04-10",
			Type:     domain.TypeExpense,
			Subject:  subject,
			Amount:   decimal.NewFromInt(1000000),
			Currency: domain.VND,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return mem
}

func TestSyncCreatesUpdatesAndArchives(t *testing.T) {
	ctx := context.Background()
	mem := seedStore(t)

	// Page p1 mirrors tx 1; p99 points at a deleted transaction.
	fake := &fakeNotion{
		pages: []notionapi.Page{
			pageWithTxID("p1", "1"),
			pageWithTxID("p99", "99"),
		},
	}

	stats, err := SyncTransactions(ctx, mem, fake, "db-1", false)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Created != 1 || stats.Updated != 1 || stats.Archived != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(fake.archived) != 1 || fake.archived[0] != "p99" {
		t.Errorf("archived = %v", fake.archived)
	}
	if _, ok := fake.updated["p1"]; !ok {
		t.Error("page p1 should have been updated")
	}
	if len(fake.created) != 1 {
		t.Fatalf("created = %d pages", len(fake.created))
	}

	title, ok := fake.created[0]["Subject"].(notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 || title.Title[0].Text.Content != "Lương thợ tuần 2" {
		t.Errorf("created page subject = %+v", fake.created[0]["Subject"])
	}
}

func TestSyncDryRunTouchesNothing(t *testing.T) {
	ctx := context.Background()
	mem := seedStore(t)

	fake := &fakeNotion{
		pages: []notionapi.Page{pageWithTxID("p99", "99")},
	}

	stats, err := SyncTransactions(ctx, mem, fake, "db-1", true)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Created != 2 || stats.Archived != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(fake.created) != 0 || len(fake.archived) != 0 || len(fake.updated) != 0 {
		t.Error("dry run must not call the Notion API mutators")
	}
}

func TestMapperProvenanceFields(t *testing.T) {
	orig := decimal.NewFromInt(100)
	tx := domain.Transaction{
		ID:               7,
		Date:             "2026-05-02",
		Type:             domain.TypeExpense,
		Subject:          "Thiết bị điện",
		Amount:           decimal.NewFromInt(2550000),
		Currency:         domain.VND,
		OriginalAmount:   &orig,
		OriginalCurrency: domain.USD,
		RateUsed:         25500,
	}

	props := TransactionToNotionProperties(tx)

	amount, ok := props["Original Amount"].(notionapi.NumberProperty)
	if !ok || amount.Number != 100 {
		t.Errorf("Original Amount = %+v", props["Original Amount"])
	}
	cur, ok := props["Original Currency"].(notionapi.SelectProperty)
	if !ok || cur.Select.Name != "USD" {
		t.Errorf("Original Currency = %+v", props["Original Currency"])
	}
	if _, ok := props["Date"]; !ok {
		t.Error("Date property missing")
	}
}
