package domain

import (
	"fmt"
	"time"
)

// CalendarDate is a timezone-free calendar day.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDate validates and builds a CalendarDate.
// Returns false for impossible dates such as 2/30 or 13/1.
func NewCalendarDate(year int, month time.Month, day int) (CalendarDate, bool) {
	if year < 1 || month < time.January || month > time.December || day < 1 {
		return CalendarDate{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return CalendarDate{}, false
	}
	return CalendarDate{Year: year, Month: month, Day: day}, true
}

// MustDate builds a CalendarDate and panics on invalid input.
// Intended for literals in tests and fixtures.
func MustDate(year int, month time.Month, day int) CalendarDate {
	d, ok := NewCalendarDate(year, month, day)
	if !ok {
		panic(fmt.Sprintf("invalid calendar date %04d-%02d-%02d", year, int(month), day))
	}
	return d
}

// DateFromTime truncates t to its calendar day (in t's location).
func DateFromTime(t time.Time) CalendarDate {
	return CalendarDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Time returns the date at UTC midnight.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero value.
func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d is strictly earlier than other.
func (d CalendarDate) Before(other CalendarDate) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly later than other.
func (d CalendarDate) After(other CalendarDate) bool {
	return d.Compare(other) > 0
}

// Equal reports whether d and other denote the same day.
func (d CalendarDate) Equal(other CalendarDate) bool {
	return d == other
}

// Compare returns -1, 0 or +1.
func (d CalendarDate) Compare(other CalendarDate) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

// String renders the date as YYYY/MM/DD, the format used in the rollup table.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, int(d.Month), d.Day)
}

// ISO renders the date as YYYY-MM-DD for SQL DATE columns.
func (d CalendarDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseISODate parses YYYY-MM-DD as produced by ISO.
func ParseISODate(s string) (CalendarDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateFromTime(t), nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
