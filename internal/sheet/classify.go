package sheet

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tuanngo/cashbook/internal/normalize"
)

// Skip reasons reported for rows the classifier discards. They are expected
// outcomes, collected per row, never batch-fatal.
const (
	SkipBlank   = "blank or sparse row"
	SkipNoText  = "no descriptive text"
	SkipNoAmt   = "no amount found"
	SkipHeading = "header or subtotal row"
)

// RowResult is the tagged outcome of classifying one headerless row: either
// an accepted row with inferred fields, or a skip with its reason. Rows are
// independent of their neighbors, so classification is deterministic per row
// and safe to run in parallel.
type RowResult struct {
	Accepted bool
	Subject  string
	Note     string
	Amount   decimal.Decimal
	// AmountCol is the column the winning amount came from.
	AmountCol int
	// Personnel is advisory metadata: the row text mentioned a
	// labor/personnel keyword. Not a filter.
	Personnel bool

	SkipReason string
}

// Classifier infers transaction fields from spreadsheet rows that have no
// reliable header. MinAmount and Keywords are locale-tuned configuration,
// not universal constants; defaults come from the config package.
type Classifier struct {
	// MinAmount is the smallest numeric cell treated as a money amount.
	// Assumes the base currency's meaningful unit is in the tens of
	// thousands.
	MinAmount decimal.Decimal

	// Keywords tag rows as personnel/labor spending.
	Keywords []string
}

var (
	// Cells that are purely a 1-3 digit integer are row sequence numbers.
	ordinalRe = regexp.MustCompile(`^\d{1,3}$`)
	// Cells of digits/punctuation, optionally ending in %, are percentages
	// or codes, not descriptions.
	codeRe = regexp.MustCompile(`^[0-9.,/\-]+%?$`)
	// An amount candidate is digits with optional grouping separators once
	// currency glyphs are stripped. Anything with other characters (dates
	// with slashes, free text) is not reducible to a number.
	amountShapeRe = regexp.MustCompile(`^[0-9][0-9.,]*$`)
)

var currencyGlyphs = strings.NewReplacer(
	"đ", "", "₫", "", "$", "", "€", "",
	"vnd", "", "usd", "", " ", "", "\u00a0", "",
)

// Classify applies the headerless heuristics to one row:
//
//  1. rows with fewer than two non-empty cells are noise;
//  2. the largest numeric cell at or above MinAmount is the amount;
//  3. remaining cells form a text pool, dropping ordinals and codes;
//  4. the first surviving text cell is the subject, the rest join into the
//     note;
//  5. rows led by header/total tokens are skipped;
//  6. personnel keywords anywhere in the row set the advisory flag.
func (c Classifier) Classify(row []string) RowResult {
	nonEmpty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return RowResult{SkipReason: SkipBlank}
	}

	amount := decimal.Zero
	amountCol := -1
	for col, cell := range row {
		v, ok := amountCandidate(cell)
		if !ok || v.LessThan(c.MinAmount) {
			continue
		}
		if v.GreaterThan(amount) {
			amount = v
			amountCol = col
		}
	}
	if amountCol == -1 {
		return RowResult{SkipReason: SkipNoAmt}
	}

	var pool []string
	for col, cell := range row {
		if col == amountCol {
			continue
		}
		text := strings.TrimSpace(cell)
		if text == "" || ordinalRe.MatchString(text) || codeRe.MatchString(text) {
			continue
		}
		pool = append(pool, text)
	}
	if len(pool) == 0 {
		return RowResult{SkipReason: SkipNoText}
	}

	subject := pool[0]
	if isHeadingToken(subject) {
		return RowResult{SkipReason: SkipHeading}
	}

	return RowResult{
		Accepted:  true,
		Subject:   subject,
		Note:      strings.Join(pool[1:], " - "),
		Amount:    amount,
		AmountCol: amountCol,
		Personnel: c.mentionsPersonnel(row),
	}
}

// amountCandidate reduces a cell to a number if it is one: digits plus
// grouping/decimal punctuation after currency glyphs are stripped. Dates,
// codes with slashes and free text are rejected here rather than by value.
func amountCandidate(cell string) (decimal.Decimal, bool) {
	s := currencyGlyphs.Replace(strings.ToLower(strings.TrimSpace(cell)))
	if !amountShapeRe.MatchString(s) {
		return decimal.Zero, false
	}
	v := normalize.ParseAmount(s)
	if v.IsZero() {
		return decimal.Zero, false
	}
	return v, true
}

// Tokens that open header or subtotal rows in Vietnamese cash-book sheets.
var headingTokens = []string{"total", "tổng", "tong", "hạng mục", "hang muc", "stt", "cộng", "cong"}

func isHeadingToken(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	for _, tok := range headingTokens {
		if strings.HasPrefix(s, tok) {
			return true
		}
	}
	return false
}

func (c Classifier) mentionsPersonnel(row []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	for _, kw := range c.Keywords {
		if kw != "" && strings.Contains(joined, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
