package leave

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWorkingDays(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{name: "full work week", start: date(2024, 1, 1), end: date(2024, 1, 5), want: 5},
		{name: "week including weekend", start: date(2024, 1, 1), end: date(2024, 1, 7), want: 5},
		{name: "weekend only", start: date(2024, 1, 6), end: date(2024, 1, 7), want: 0},
		{name: "friday to monday", start: date(2024, 1, 5), end: date(2024, 1, 8), want: 2},
		{name: "single weekday", start: date(2024, 1, 3), end: date(2024, 1, 3), want: 1},
		{name: "end before start", start: date(2024, 1, 5), end: date(2024, 1, 4), want: 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := WorkingDays(tc.start, tc.end); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestQuotaForTenure(t *testing.T) {
	now := date(2025, 6, 15)

	if got := QuotaForTenure(date(2024, 5, 15), now); got != 14 {
		t.Fatalf("13 months of service: got %d, want 14", got)
	}
	if got := QuotaForTenure(date(2025, 1, 15), now); got != 10 {
		t.Fatalf("5 months of service: got %d, want 10", got)
	}
	if got := QuotaForTenure(date(2024, 6, 15), now); got != 10 {
		t.Fatalf("exactly 12 months of service: got %d, want 10", got)
	}
}

func TestCheckDates(t *testing.T) {
	today := date(2024, 3, 11)

	if err := CheckDates(date(2024, 3, 12), date(2024, 3, 14), today); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	if err := CheckDates(date(2024, 3, 14), date(2024, 3, 12), today); err == nil {
		t.Fatal("start after end should be rejected")
	}
	if err := CheckDates(date(2024, 3, 10), date(2024, 3, 12), today); err == nil {
		t.Fatal("past start date should be rejected")
	}
}

func TestCheckTypeRules(t *testing.T) {
	tests := []struct {
		name        string
		leaveType   string
		workingDays int
		gender      string
		wantErr     bool
	}{
		{name: "annual any length", leaveType: TypeAnnual, workingDays: 9, gender: "male", wantErr: false},
		{name: "sick within limit", leaveType: TypeSick, workingDays: 2, gender: "female", wantErr: false},
		{name: "sick too long", leaveType: TypeSick, workingDays: 3, gender: "female", wantErr: true},
		{name: "menstrual one day", leaveType: TypeMenstrual, workingDays: 1, gender: "female", wantErr: false},
		{name: "menstrual too long", leaveType: TypeMenstrual, workingDays: 2, gender: "female", wantErr: true},
		{name: "menstrual wrong gender", leaveType: TypeMenstrual, workingDays: 1, gender: "male", wantErr: true},
		{name: "marriage exact", leaveType: TypeMarriage, workingDays: 3, gender: "male", wantErr: false},
		{name: "marriage off by one", leaveType: TypeMarriage, workingDays: 2, gender: "male", wantErr: true},
		{name: "maternity exact", leaveType: TypeMaternity, workingDays: 45, gender: "female", wantErr: false},
		{name: "paternity wrong gender", leaveType: TypePaternity, workingDays: 2, gender: "female", wantErr: true},
		{name: "unknown type", leaveType: "sabbatical", workingDays: 5, gender: "male", wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := CheckTypeRules(tc.leaveType, tc.workingDays, tc.gender)
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
