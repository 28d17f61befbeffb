package overtime

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckEntries(t *testing.T) {
	today := date(2025, 3, 15)
	reset := date(2025, 3, 1)

	tests := []struct {
		name      string
		entries   []Entry
		total     float64
		lastReset *time.Time
		wantErr   bool
	}{
		{
			name: "valid batch",
			entries: []Entry{
				{Date: date(2025, 3, 10), Hours: 3},
				{Date: date(2025, 3, 11), Hours: 2.5},
			},
			total: 5.5,
		},
		{
			name:    "no entries",
			entries: nil,
			total:   0,
			wantErr: true,
		},
		{
			name: "duplicate date",
			entries: []Entry{
				{Date: date(2025, 3, 10), Hours: 3},
				{Date: date(2025, 3, 10), Hours: 2},
			},
			total:   5,
			wantErr: true,
		},
		{
			name:    "future date",
			entries: []Entry{{Date: date(2025, 3, 16), Hours: 2}},
			total:   2,
			wantErr: true,
		},
		{
			name:      "date before last reset",
			entries:   []Entry{{Date: date(2025, 2, 28), Hours: 2}},
			total:     2,
			lastReset: &reset,
			wantErr:   true,
		},
		{
			name:      "date on reset day allowed",
			entries:   []Entry{{Date: date(2025, 3, 1), Hours: 2}},
			total:     2,
			lastReset: &reset,
		},
		{
			name:    "zero hours",
			entries: []Entry{{Date: date(2025, 3, 10), Hours: 0}},
			total:   0,
			wantErr: true,
		},
		{
			name:    "over daily cap",
			entries: []Entry{{Date: date(2025, 3, 10), Hours: 12.5}},
			total:   12.5,
			wantErr: true,
		},
		{
			name:    "exactly daily cap",
			entries: []Entry{{Date: date(2025, 3, 10), Hours: 12}},
			total:   12,
		},
		{
			name: "total mismatch",
			entries: []Entry{
				{Date: date(2025, 3, 10), Hours: 3},
				{Date: date(2025, 3, 11), Hours: 2.5},
			},
			total:   6,
			wantErr: true,
		},
		{
			name: "total within epsilon",
			entries: []Entry{
				{Date: date(2025, 3, 10), Hours: 3},
				{Date: date(2025, 3, 11), Hours: 2.5},
			},
			total: 5.505,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := CheckEntries(tc.entries, tc.total, today, tc.lastReset)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("error should wrap ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestSpan(t *testing.T) {
	entries := []Entry{
		{Date: date(2025, 3, 10), Hours: 2},
		{Date: date(2025, 3, 8), Hours: 2},
		{Date: date(2025, 3, 12), Hours: 2},
	}
	start, end := Span(entries)
	if !start.Equal(date(2025, 3, 8)) {
		t.Fatalf("start: got %v, want 2025-03-08", start)
	}
	if !end.Equal(date(2025, 3, 12)) {
		t.Fatalf("end: got %v, want 2025-03-12", end)
	}
}

func TestConflictDates(t *testing.T) {
	entries := []Entry{
		{Date: date(2025, 3, 10), Hours: 2},
		{Date: date(2025, 3, 11), Hours: 2},
		{Date: date(2025, 3, 12), Hours: 2},
	}

	existing := []time.Time{date(2025, 3, 12), date(2025, 3, 10), date(2025, 3, 20)}
	got := ConflictDates(entries, existing)
	want := []string{"2025-03-10", "2025-03-12"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if got := ConflictDates(entries, nil); got != nil {
		t.Fatalf("no existing dates should yield no conflicts, got %v", got)
	}
}
