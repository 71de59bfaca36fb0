package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tuanngo/cashbook/internal/domain"
)

// Rejection reasons for expected per-row failures. These are data, not
// faults: a batch collects them and keeps going.
var (
	ErrEmptySubject = errors.New("empty subject")
	ErrNoAmount     = errors.New("no amount detected")
)

// DefaultCreatedBy is recorded when the caller did not identify themselves.
const DefaultCreatedBy = "unknown"

// Context carries the immutable per-batch inputs of normalization. Passing
// it explicitly (instead of reading clocks or globals) keeps Normalize pure
// and lets batches run rows in parallel and replay deterministically.
type Context struct {
	// Now is the ingestion instant; it supplies the fallback date and the
	// year-sanity reference.
	Now time.Time

	// CreatedBy and Source default the corresponding transaction fields.
	CreatedBy string
	Source    string

	// AIExtracted enables the year-sanity correction, which only applies to
	// dates read out of images.
	AIExtracted bool

	// TrustZeroAmount lets an explicit zero amount through; set for manual
	// form entry only. Heuristic paths treat zero as "not found".
	TrustZeroAmount bool

	// Rate is the USD -> VND conversion rate for this batch.
	Rate int64

	// IDs assigns unique ids within the batch.
	IDs *IDGenerator
}

// Bilingual tokens that mark a transaction as income; anything else is an
// expense.
var incomeTokens = []string{"thu", "nhận", "income", "received", "receive"}

// InferType classifies a raw type token by containment match.
func InferType(raw string) domain.TxType {
	lower := strings.ToLower(raw)
	for _, tok := range incomeTokens {
		if strings.Contains(lower, tok) {
			return domain.TypeIncome
		}
	}
	return domain.TypeExpense
}

// Normalize turns one RawFields bag from any source into a canonical
// Transaction, or returns a rejection error (ErrEmptySubject, ErrNoAmount)
// that the batch records and moves past.
func Normalize(raw domain.RawFields, ctx Context) (domain.Transaction, error) {
	subject := strings.TrimSpace(raw.Subject)
	if subject == "" {
		return domain.Transaction{}, ErrEmptySubject
	}

	amount := ParseAmount(raw.Amount)
	if amount.Sign() < 0 {
		return domain.Transaction{}, fmt.Errorf("%w: negative amount", ErrNoAmount)
	}
	if amount.IsZero() && !(ctx.TrustZeroAmount && raw.Amount != nil) {
		return domain.Transaction{}, ErrNoAmount
	}

	date := ResolveDate(raw.Date, ctx.Now)
	if ctx.AIExtracted {
		date = CorrectYear(date, ctx.Now)
	}

	conv := ToBase(amount, ClassifyCurrency(raw.Currency), ctx.Rate)

	createdBy := strings.TrimSpace(raw.CreatedBy)
	if createdBy == "" {
		createdBy = ctx.CreatedBy
	}
	if createdBy == "" {
		createdBy = DefaultCreatedBy
	}
	source := ctx.Source
	if source == "" {
		source = "manual"
	}

	tx := domain.Transaction{
		Date:      date,
		Type:      InferType(raw.Type),
		Subject:   subject,
		Amount:    conv.Amount,
		Currency:  domain.VND,
		Note:      strings.TrimSpace(raw.Note),
		CreatedBy: createdBy,
		Source:    source,

		OriginalAmount:   conv.Original,
		OriginalCurrency: conv.OriginalCurrency,
		RateUsed:         conv.Rate,
	}
	if ctx.IDs != nil {
		tx.ID = ctx.IDs.Next()
	}
	return tx, nil
}
