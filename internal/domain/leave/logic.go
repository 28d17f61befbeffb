package leave

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequest wraps every business-rule rejection so transports
// can map them to one failure class while keeping the message.
var ErrInvalidRequest = errors.New("invalid leave request")

// WorkingDays counts weekdays between start and end inclusive.
// Weekends are always excluded; there is no holiday calendar.
func WorkingDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

// QuotaForTenure returns the annual-leave allocation: 14 days after a
// year of service, 10 before.
func QuotaForTenure(joinDate, now time.Time) int {
	serviceMonths := int(now.Sub(joinDate).Hours()/24) / 30
	if serviceMonths > 12 {
		return 14
	}
	return 10
}

// CheckDates applies the rules shared by every leave type.
func CheckDates(start, end, today time.Time) error {
	if start.After(end) {
		return fmt.Errorf("%w: start date cannot be after end date", ErrInvalidRequest)
	}
	if start.Before(today) {
		return fmt.Errorf("%w: cannot request leave for past dates", ErrInvalidRequest)
	}
	return nil
}

// CheckTypeRules applies the per-type policy that needs no stored
// state. Quota balance and the monthly menstrual limit are checked
// against the database separately.
func CheckTypeRules(leaveType string, workingDays int, gender string) error {
	rule, ok := TypeRules[leaveType]
	if !ok {
		return fmt.Errorf("%w: invalid leave type", ErrInvalidRequest)
	}
	if rule.GenderSpecific != "" && gender != rule.GenderSpecific {
		return fmt.Errorf("%w: %s is only available to %s employees", ErrInvalidRequest, rule.Name, rule.GenderSpecific)
	}
	if rule.MaxConsecutive > 0 && workingDays > rule.MaxConsecutive {
		return fmt.Errorf("%w: sick leave without medical certificate limited to %d consecutive days", ErrInvalidRequest, rule.MaxConsecutive)
	}
	if rule.MaxPerMonth > 0 && workingDays > 1 {
		return fmt.Errorf("%w: %s is limited to 1 day per request", ErrInvalidRequest, rule.Name)
	}
	if rule.FixedDays > 0 && workingDays != rule.FixedDays {
		return fmt.Errorf("%w: %s must be exactly %d days", ErrInvalidRequest, rule.Name, rule.FixedDays)
	}
	return nil
}
