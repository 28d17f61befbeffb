package overtime

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	maxDailyHours = 12
	hoursEpsilon  = 0.01
)

var ErrInvalidRequest = errors.New("invalid overtime request")

// CheckEntries applies the submission rules: at least one entry, no
// duplicate dates within the batch, no future dates, nothing before
// the last payroll reset, hours within (0, 12] per day, and a declared
// total matching the entry sum within rounding epsilon.
func CheckEntries(entries []Entry, declaredTotal float64, today time.Time, lastReset *time.Time) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no overtime dates provided", ErrInvalidRequest)
	}

	var sum float64
	days := make(map[string]bool, len(entries))
	for _, entry := range entries {
		day := entry.Date.Format("2006-01-02")
		if days[day] {
			return fmt.Errorf("%w: duplicate date %s in submission", ErrInvalidRequest, day)
		}
		days[day] = true
		if entry.Date.After(today) {
			return fmt.Errorf("%w: cannot submit overtime for future dates", ErrInvalidRequest)
		}
		if lastReset != nil && entry.Date.Before(*lastReset) {
			return fmt.Errorf("%w: dates before the last payroll reset (%s) are closed", ErrInvalidRequest, lastReset.Format("2006-01-02"))
		}
		if entry.Hours <= 0 || entry.Hours > maxDailyHours {
			return fmt.Errorf("%w: invalid overtime hours %g, must be between 0.5 and %d per day", ErrInvalidRequest, entry.Hours, maxDailyHours)
		}
		sum += entry.Hours
	}

	if math.Abs(sum-declaredTotal) > hoursEpsilon {
		return fmt.Errorf("%w: total hours mismatch with individual entries", ErrInvalidRequest)
	}
	return nil
}

// Span returns the min and max entry dates.
func Span(entries []Entry) (time.Time, time.Time) {
	start, end := entries[0].Date, entries[0].Date
	for _, entry := range entries[1:] {
		if entry.Date.Before(start) {
			start = entry.Date
		}
		if entry.Date.After(end) {
			end = entry.Date
		}
	}
	return start, end
}

// ConflictDates intersects the submission's dates with already-booked
// ones, formatted for the rejection message.
func ConflictDates(entries []Entry, existing []time.Time) []string {
	booked := make(map[string]bool, len(existing))
	for _, d := range existing {
		booked[d.Format("2006-01-02")] = true
	}

	var conflicts []string
	seen := map[string]bool{}
	for _, entry := range entries {
		day := entry.Date.Format("2006-01-02")
		if booked[day] && !seen[day] {
			seen[day] = true
			conflicts = append(conflicts, day)
		}
	}
	sort.Strings(conflicts)
	return conflicts
}

func conflictError(conflicts []string) error {
	return fmt.Errorf("%w: overtime already submitted for dates: %s", ErrInvalidRequest, strings.Join(conflicts, ", "))
}
