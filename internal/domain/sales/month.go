package sales

import (
	"encoding/json"
	"fmt"
	"time"
)

// monthLayout is the canonical text form of a Month
const monthLayout = "2006-01"

// Month is a calendar month. Data is synchronized one month at a time.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth creates a month, normalizing out-of-range month numbers
func NewMonth(year int, month time.Month) Month {
	return MonthOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// MonthOf returns the month containing t (evaluated in t's location)
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a YYYY-MM string
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// String renders the month as YYYY-MM
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether the month is unset
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns the first instant of the month in UTC
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month in UTC (exclusive bound)
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// LastDay returns midnight of the last day of the month
func (m Month) LastDay() time.Time {
	return m.End().AddDate(0, 0, -1)
}

// Next returns the following month
func (m Month) Next() Month {
	return MonthOf(m.End())
}

// Prev returns the preceding month
func (m Month) Prev() Month {
	return MonthOf(m.Start().AddDate(0, -1, 0))
}

// Before reports whether m is strictly earlier than o
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Contains reports whether t falls inside the month (t is converted to UTC)
func (m Month) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(m.Start()) && u.Before(m.End())
}

// Days returns every date of the month at midnight UTC
func (m Month) Days() []time.Time {
	days := make([]time.Time, 0, 31)
	for d := m.Start(); d.Before(m.End()); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// MarshalJSON encodes the month as "YYYY-MM"
func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a "YYYY-MM" string
func (m *Month) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MonthsBetween expands the inclusive range [start, end] into the ascending list
// of calendar months it touches. Both bounds are interpreted in UTC.
func MonthsBetween(start, end time.Time) ([]Month, error) {
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	last := MonthOf(end)
	months := make([]Month, 0, 12)
	for m := MonthOf(start); !last.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months, nil
}

// MonthStrings renders a slice of months as YYYY-MM strings
func MonthStrings(months []Month) []string {
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.String()
	}
	return out
}

// TruncateToDay returns midnight UTC of the calendar day of t as seen in t's own
// location, so a date parsed in the marketplace's timezone keeps its day.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
