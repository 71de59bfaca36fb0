package normalize

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/domain"
)

func TestClassifyCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Currency
	}{
		{"USD", domain.USD},
		{"usd", domain.USD},
		{"Đô la Mỹ (USD)", domain.USD},
		{"VND", domain.VND},
		{"đồng", domain.VND},
		{"", domain.VND},
		{"EUR", domain.VND}, // anything unknown defaults to the base
	}

	for _, tt := range tests {
		if got := ClassifyCurrency(tt.in); got != tt.want {
			t.Errorf("ClassifyCurrency(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestToBaseUSD(t *testing.T) {
	conv := ToBase(decimal.NewFromInt(100), domain.USD, 25500)

	if !conv.Amount.Equal(decimal.NewFromInt(2550000)) {
		t.Errorf("Amount = %s, want 2550000", conv.Amount)
	}
	if conv.Original == nil || !conv.Original.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Original = %v, want 100", conv.Original)
	}
	if conv.OriginalCurrency != domain.USD {
		t.Errorf("OriginalCurrency = %s, want USD", conv.OriginalCurrency)
	}
	if conv.Rate != 25500 {
		t.Errorf("Rate = %d, want 25500", conv.Rate)
	}
}

func TestToBaseUSDRoundsToWholeDong(t *testing.T) {
	conv := ToBase(decimal.RequireFromString("0.99"), domain.USD, 25500)
	// 0.99 * 25500 = 25245, already whole; 1.005 * 25500 = 25627.5 -> 25628.
	if !conv.Amount.Equal(decimal.NewFromInt(25245)) {
		t.Errorf("Amount = %s, want 25245", conv.Amount)
	}

	conv = ToBase(decimal.RequireFromString("1.005"), domain.USD, 25500)
	if !conv.Amount.Equal(decimal.NewFromInt(25628)) {
		t.Errorf("Amount = %s, want 25628", conv.Amount)
	}
}

func TestToBaseVNDPassThrough(t *testing.T) {
	conv := ToBase(decimal.NewFromInt(100), domain.VND, 25500)

	if !conv.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Amount = %s, want 100", conv.Amount)
	}
	if conv.Original != nil || conv.OriginalCurrency != "" || conv.Rate != 0 {
		t.Errorf("VND conversion must carry no provenance, got %+v", conv)
	}
}
