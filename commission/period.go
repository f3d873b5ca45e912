package commission

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH-YEAR - The period key for all commission data
// =============================================================================

// MonthYear identifies a commission period as "YYYY-MM". It is the second
// half of every approval key and the filter applied to sale records.
type MonthYear string

const monthYearLayout = "2006-01"

// ParseMonthYear validates and normalizes a "YYYY-MM" string.
func ParseMonthYear(s string) (MonthYear, error) {
	t, err := time.Parse(monthYearLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthYear(t.Format(monthYearLayout)), nil
}

// MonthYearOf returns the period containing t.
func MonthYearOf(t time.Time) MonthYear {
	return MonthYear(t.Format(monthYearLayout))
}

// Contains reports whether t falls inside the month.
func (m MonthYear) Contains(t time.Time) bool {
	return MonthYearOf(t) == m
}

// Valid reports whether the value is a well-formed "YYYY-MM".
func (m MonthYear) Valid() bool {
	_, err := time.Parse(monthYearLayout, string(m))
	return err == nil
}

func (m MonthYear) String() string { return string(m) }

// MonthsEmployed returns the number of whole months between the hire date
// and now. A partial month does not count. Used by the tenure-deduction
// derivation ("employed under nine months").
func MonthsEmployed(hireDate, now time.Time) int {
	if now.Before(hireDate) {
		return 0
	}
	months := (now.Year()-hireDate.Year())*12 + int(now.Month()) - int(hireDate.Month())
	if now.Day() < hireDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
