package normalize

import (
	"testing"
	"time"
)

var fallback = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func TestResolveDate(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"native date", time.Date(2026, 2, 1, 23, 59, 0, 0, time.FixedZone("ICT", 7*3600)), "2026-02-01"},
		{"iso passthrough", "2026-02-01", "2026-02-01"},
		{"day month year slashes", "01/02/2026", "2026-02-01"},
		{"day month year dashes", "1-2-2026", "2026-02-01"},
		{"single digit padding", "5/9/2025", "2025-09-05"},
		{"spreadsheet serial", "46023", "2026-01-01"},
		{"garbage", "garbage", "2026-03-15"},
		{"empty", "", "2026-03-15"},
		{"impossible day", "31/02/2026", "2026-03-15"},
		{"invalid iso shape", "2026-13-40", "2026-03-15"},
		{"nil", nil, "2026-03-15"},
		{"four digit number", "4602", "2026-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDate(tt.raw, fallback); got != tt.want {
				t.Errorf("ResolveDate(%v) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCorrectYear(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"2019-05-01", "2026-05-01"}, // far past, year overwritten
		{"2031-05-01", "2026-05-01"}, // far future, year overwritten
		{"2025-12-31", "2025-12-31"}, // within one year, untouched
		{"2027-01-01", "2027-01-01"}, // within one year, untouched
		{"2026-06-01", "2026-06-01"},
		{"garbage", "garbage"}, // unparseable passes through
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CorrectYear(tt.in, now); got != tt.want {
				t.Errorf("CorrectYear(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
