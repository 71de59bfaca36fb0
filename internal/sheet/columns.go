package sheet

import (
	"strings"

	"github.com/tuanngo/cashbook/internal/domain"
)

// ColumnAbsent marks a canonical field with no matching header column.
const ColumnAbsent = -1

// ColumnMap maps each canonical transaction field to a zero-based column
// index in one spreadsheet. Built once from the header row, reused for every
// data row.
type ColumnMap struct {
	Date      int
	Type      int
	Subject   int
	Amount    int
	Currency  int
	Note      int
	CreatedBy int
}

// Matched reports how many canonical fields found a column.
func (m ColumnMap) Matched() int {
	n := 0
	for _, idx := range []int{m.Date, m.Type, m.Subject, m.Amount, m.Currency, m.Note, m.CreatedBy} {
		if idx != ColumnAbsent {
			n++
		}
	}
	return n
}

// Header patterns per field, bilingual, with unaccented spellings so headers
// typed without diacritics still match. Substring containment against the
// trimmed, lower-cased header cell; first matching column in order wins.
var columnPatterns = []struct {
	assign   func(*ColumnMap, int)
	patterns []string
}{
	{func(m *ColumnMap, i int) { m.Date = i }, []string{"date", "ngày", "ngay"}},
	{func(m *ColumnMap, i int) { m.Amount = i }, []string{"amount", "số tiền", "so tien"}},
	{func(m *ColumnMap, i int) { m.Currency = i }, []string{"currency", "tiền tệ", "tien te", "loại tiền", "loai tien"}},
	{func(m *ColumnMap, i int) { m.Type = i }, []string{"type", "loại", "loai"}},
	{func(m *ColumnMap, i int) { m.Subject = i }, []string{"subject", "đối tượng", "doi tuong", "nội dung", "noi dung"}},
	{func(m *ColumnMap, i int) { m.Note = i }, []string{"note", "ghi chú", "ghi chu"}},
	{func(m *ColumnMap, i int) { m.CreatedBy = i }, []string{"created", "người", "nguoi"}},
}

// BuildColumnMap matches a header row of free-text labels onto canonical
// field slots. Order-independent in the header and tolerant of unrelated
// extra columns; unmatched fields get ColumnAbsent. Currency patterns are
// tried before type so "Loại tiền" claims the currency slot, not the type
// slot.
func BuildColumnMap(header []string) ColumnMap {
	m := ColumnMap{
		Date: ColumnAbsent, Type: ColumnAbsent, Subject: ColumnAbsent,
		Amount: ColumnAbsent, Currency: ColumnAbsent, Note: ColumnAbsent,
		CreatedBy: ColumnAbsent,
	}

	claimed := make(map[int]bool)
	for _, field := range columnPatterns {
		for col, label := range header {
			if claimed[col] {
				continue
			}
			cell := strings.ToLower(strings.TrimSpace(label))
			if cell == "" {
				continue
			}
			if containsAny(cell, field.patterns) {
				field.assign(&m, col)
				claimed[col] = true
				break
			}
		}
	}
	return m
}

// MapRow reads one data row through the column map into a raw field bag.
// Absent columns and short rows read as empty strings; defaulting and
// validation happen in normalization.
func MapRow(row []string, m ColumnMap) domain.RawFields {
	get := func(idx int) string {
		if idx == ColumnAbsent || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	return domain.RawFields{
		Date:      get(m.Date),
		Type:      get(m.Type),
		Subject:   get(m.Subject),
		Amount:    get(m.Amount),
		Currency:  get(m.Currency),
		Note:      get(m.Note),
		CreatedBy: get(m.CreatedBy),
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
