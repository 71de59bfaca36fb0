package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

// Spreadsheet serials count days from 1899-12-30; day 25569 is the Unix
// epoch.
const serialEpochOffset = 25569

var (
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dmyDateRe   = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	serialDayRe = regexp.MustCompile(`^\d{5}$`)
)

// ResolveDate turns a raw date token into a canonical YYYY-MM-DD string.
// Precedence, first match wins: native date value, ISO string, D/M/YYYY
// string (day first), bare 5-digit spreadsheet serial, then the fallback.
// The result is always a valid calendar date; unparseable input never
// produces an empty string.
func ResolveDate(raw any, fallback time.Time) string {
	switch v := raw.(type) {
	case time.Time:
		if !v.IsZero() {
			// Format the components directly; no timezone conversion.
			return v.Format(dateFormat)
		}
	case string:
		s := strings.TrimSpace(v)
		switch {
		case isoDateRe.MatchString(s):
			if _, err := time.Parse(dateFormat, s); err == nil {
				return s
			}
		case dmyDateRe.MatchString(s):
			if out, ok := resolveDayMonthYear(s); ok {
				return out
			}
		case serialDayRe.MatchString(s):
			serial, _ := strconv.ParseInt(s, 10, 64)
			return time.Unix((serial-serialEpochOffset)*86400, 0).UTC().Format(dateFormat)
		}
	}
	return fallback.Format(dateFormat)
}

// resolveDayMonthYear reinterprets "D/M/YYYY" or "D-M-YYYY" as day first and
// re-emits it zero-padded. Returns false for impossible dates like 31/02.
func resolveDayMonthYear(s string) (string, bool) {
	m := dmyDateRe.FindStringSubmatch(s)
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// CorrectYear applies the year-sanity policy for AI-extracted dates: when the
// resolved year is more than one year away from the processing year, the year
// component is overwritten with the processing year, month and day kept.
// Vision extraction is known to mis-read truncated year digits.
func CorrectYear(date string, now time.Time) string {
	if len(date) < 10 {
		return date
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return date
	}
	current := now.Year()
	if year > current+1 || year < current-1 {
		return fmt.Sprintf("%04d%s", current, date[4:])
	}
	return date
}
