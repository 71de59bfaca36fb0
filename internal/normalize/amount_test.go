package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmountStrings(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.234.000", "1234000"},       // grouped integer, dot separators
		{"1,234,567", "1234567"},       // grouped integer, comma separators
		{"24.99", "24.99"},             // plain decimal
		{"1.234,99", "1234.99"},        // grouped with comma decimal
		{"15,000,000", "15000000"},     // common VND formatting
		{"100000", "100000"},           // bare digits
		{"100.000đ", "100000"},         // currency glyph stripped, 3-digit tail
		{"$ 24.5", "24.5"},             // one decimal digit
		{"1.5", "1.5"},                 // short decimal
		{"0", "0"},                     // explicit zero
		{"", "0"},                      // empty
		{"abc", "0"},                   // non-numeric
		{"-50000", "50000"},            // sign dropped; type carries direction
		{"..,,", "0"},                  // separators only
		{",99", "0.99"},                // leading decimal separator
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAmount(tt.in)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, want)
			}
		})
	}
}

func TestParseAmountNative(t *testing.T) {
	if got := ParseAmount(100000); !got.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("ParseAmount(int) = %s", got)
	}
	if got := ParseAmount(float64(2499.995)); !got.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("ParseAmount(float64) = %s, want rounded 2500", got)
	}
	if got := ParseAmount(-1500.5); !got.Equal(decimal.RequireFromString("1500.5")) {
		t.Errorf("ParseAmount(negative float) = %s", got)
	}
	if got := ParseAmount(nil); !got.IsZero() {
		t.Errorf("ParseAmount(nil) = %s, want 0", got)
	}
	if got := ParseAmount(struct{}{}); !got.IsZero() {
		t.Errorf("ParseAmount(struct) = %s, want 0", got)
	}
}
