package domain

import (
	"github.com/shopspring/decimal"
)

// TxType is the direction of a transaction.
type TxType string

const (
	TypeIncome  TxType = "income"
	TypeExpense TxType = "expense"
)

// Currency is one of the currencies the cash book accepts. Raw currency
// tokens are always classified into one of these before persistence; no raw
// strings survive normalization.
type Currency string

const (
	VND Currency = "VND"
	USD Currency = "USD"
)

// Transaction is the canonical record persisted by the store. All three
// ingestion channels (manual form, AI scan, spreadsheet import) converge on
// this shape through normalize.Normalize.
type Transaction struct {
	ID        int64           `json:"id"`
	Date      string          `json:"date"` // YYYY-MM-DD
	Type      TxType          `json:"type"`
	Subject   string          `json:"subject"`
	Amount    decimal.Decimal `json:"amount"` // base currency, 2dp, never negative
	Currency  Currency        `json:"currency"`
	Note      string          `json:"note"`
	CreatedBy string          `json:"created_by"`
	Source    string          `json:"source"` // ingestion channel tag

	// FX provenance, populated only when the amount was converted from a
	// foreign currency.
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency Currency         `json:"original_currency,omitempty"`
	RateUsed         int64            `json:"rate_used,omitempty"`
}

// RawFields is the unvalidated bag of tokens produced by one of the
// extraction paths. Date and Amount are any because spreadsheet cells carry
// native time.Time / float64 values that must reach the resolvers intact.
// Consumed exactly once by normalize.Normalize; never persisted.
type RawFields struct {
	Date      any
	Type      string
	Subject   string
	Amount    any
	Currency  string
	Note      string
	CreatedBy string
}
