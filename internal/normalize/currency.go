package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/domain"
)

// ClassifyCurrency maps a raw currency token onto the fixed currency set.
// Any token containing "USD" (case-insensitive) is USD; everything else,
// including the empty string, defaults to VND.
func ClassifyCurrency(raw string) domain.Currency {
	if strings.Contains(strings.ToUpper(raw), "USD") {
		return domain.USD
	}
	return domain.VND
}

// Conversion is the result of unifying an amount into the base currency.
// Original/OriginalCurrency/Rate are provenance, set only when a conversion
// actually happened.
type Conversion struct {
	Amount           decimal.Decimal
	Original         *decimal.Decimal
	OriginalCurrency domain.Currency
	Rate             int64
}

// ToBase converts a foreign-currency amount into VND using the configured
// rate, rounding to the nearest whole dong and keeping the original amount
// and rate for auditability. VND amounts pass through untouched with no
// provenance.
func ToBase(amount decimal.Decimal, currency domain.Currency, rate int64) Conversion {
	if currency != domain.USD {
		return Conversion{Amount: amount}
	}
	orig := amount
	return Conversion{
		Amount:           amount.Mul(decimal.NewFromInt(rate)).Round(0),
		Original:         &orig,
		OriginalCurrency: domain.USD,
		Rate:             rate,
	}
}
