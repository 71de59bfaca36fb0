package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount turns a raw numeric-looking token into a non-negative decimal
// quantity with two-decimal precision. It accepts native numbers and strings
// that may carry thousands separators, decimal separators and currency
// glyphs in any mix ("1.234.000", "1,234,567", "24.99 USD", "15,000,000đ").
//
// A value that cannot be parsed resolves to zero; callers treat zero as
// "amount not found" except for trusted structured input. Sign is carried by
// the transaction type, never by the amount.
func ParseAmount(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(v).Abs().Round(2)
	case float32:
		return decimal.NewFromFloat32(v).Abs().Round(2)
	case int:
		return decimal.NewFromInt(int64(v)).Abs()
	case int64:
		return decimal.NewFromInt(v).Abs()
	case decimal.Decimal:
		return v.Abs().Round(2)
	case string:
		return parseAmountString(v)
	default:
		return decimal.Zero
	}
}

func parseAmountString(raw string) decimal.Decimal {
	// Keep digits and separators only; drops currency symbols, spaces,
	// minus signs and anything else.
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return decimal.Zero
	}

	// A trailing 1-2 digit group after the last separator is a decimal part
	// only when that separator character occurs exactly once. "1.234,99" and
	// "24.99" are decimals; "1.234.000" and "1,234,567" are grouped integers.
	sepIdx := strings.LastIndexAny(cleaned, ".,")
	if sepIdx >= 0 {
		sep := cleaned[sepIdx]
		tail := cleaned[sepIdx+1:]
		if len(tail) >= 1 && len(tail) <= 2 && isDigits(tail) &&
			strings.Count(cleaned, string(sep)) == 1 {
			intPart := stripSeparators(cleaned[:sepIdx])
			if intPart == "" {
				intPart = "0"
			}
			d, err := decimal.NewFromString(intPart + "." + tail)
			if err != nil {
				return decimal.Zero
			}
			return d.Round(2)
		}
	}

	d, err := decimal.NewFromString(stripSeparators(cleaned))
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", "")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
