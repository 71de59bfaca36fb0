package sheet

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testClassifier() Classifier {
	return Classifier{
		MinAmount: decimal.NewFromInt(10000),
		Keywords:  []string{"lương", "nhân công", "thợ"},
	}
}

func TestClassifyAcceptsSalaryRow(t *testing.T) {
	c := testClassifier()
	got := c.Classify([]string{"1", "Lương tháng 1", "15,000,000"})

	if !got.Accepted {
		t.Fatalf("row skipped: %s", got.SkipReason)
	}
	if got.Subject != "Lương tháng 1" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if !got.Amount.Equal(decimal.NewFromInt(15000000)) {
		t.Errorf("Amount = %s, want 15000000", got.Amount)
	}
	if got.AmountCol != 2 {
		t.Errorf("AmountCol = %d, want 2", got.AmountCol)
	}
	if !got.Personnel {
		t.Error("Personnel flag not set for salary row")
	}
	if got.Note != "" {
		t.Errorf("Note = %q, want empty", got.Note)
	}
}

func TestClassifySkips(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		name string
		row  []string
		want string
	}{
		{"blank", []string{"", "", ""}, SkipBlank},
		{"sparse", []string{"", "chỉ một ô", ""}, SkipBlank},
		{"total row", []string{"Tổng", "", "50,000,000"}, SkipHeading},
		{"header row", []string{"Hạng mục", "Ghi chú", "100,000,000"}, SkipHeading},
		{"stt header", []string{"STT", "Diễn giải", "20,000,000"}, SkipHeading},
		{"no amount", []string{"2", "Mua băng keo", "5,000"}, SkipNoAmt},
		{"dates are not amounts", []string{"01/02/2026", "ghi chú", "02/03/2026"}, SkipNoAmt},
		{"only numbers", []string{"3", "75%", "12,000,000"}, SkipNoText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.row)
			if got.Accepted {
				t.Fatalf("row accepted, want skip %q", tt.want)
			}
			if got.SkipReason != tt.want {
				t.Errorf("SkipReason = %q, want %q", got.SkipReason, tt.want)
			}
		})
	}
}

func TestClassifyLargestAmountWins(t *testing.T) {
	c := testClassifier()
	got := c.Classify([]string{"Thanh toán nhà thầu", "20.000", "1.500.000 đ"})

	if !got.Accepted {
		t.Fatalf("row skipped: %s", got.SkipReason)
	}
	if !got.Amount.Equal(decimal.NewFromInt(1500000)) {
		t.Errorf("Amount = %s, want the largest candidate 1500000", got.Amount)
	}
	if got.AmountCol != 2 {
		t.Errorf("AmountCol = %d, want 2", got.AmountCol)
	}
	// The smaller amount cell is digits/punctuation, so it is dropped from
	// the text pool rather than polluting the note.
	if got.Note != "" {
		t.Errorf("Note = %q, want empty", got.Note)
	}
}

func TestClassifyNoteJoinsRemainingText(t *testing.T) {
	c := testClassifier()
	got := c.Classify([]string{"5", "Thợ sơn", "đợt 1", "12,000,000", "đã thanh toán"})

	if !got.Accepted {
		t.Fatalf("row skipped: %s", got.SkipReason)
	}
	if got.Subject != "Thợ sơn" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if got.Note != "đợt 1 - đã thanh toán" {
		t.Errorf("Note = %q", got.Note)
	}
	if !got.Personnel {
		t.Error("Personnel flag not set")
	}
}

func TestClassifyPersonnelIsAdvisoryOnly(t *testing.T) {
	c := testClassifier()
	got := c.Classify([]string{"6", "Mua xi măng", "2,000,000"})

	if !got.Accepted {
		t.Fatalf("row skipped: %s", got.SkipReason)
	}
	if got.Personnel {
		t.Error("Personnel flag set for non-personnel row")
	}
}
