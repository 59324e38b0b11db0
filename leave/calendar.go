package leave

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date (always UTC midnight)
// =============================================================================

// Date is a calendar date with day granularity. The zero value is the zero
// date. All leave ranges are inclusive [Start, End] ranges of Dates.
type Date struct {
	t time.Time
}

// NewDate constructs a Date for the given year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a "2006-01-02" formatted string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.t.Format("2006-01-02") }

// MarshalJSON renders the date as "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a "2006-01-02" JSON string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// HOLIDAY SET - Public holidays supplied as input data, never derived
// =============================================================================

// HolidaySet maps holiday dates to their names. Membership is what matters
// for chargeability; the name is carried for display.
type HolidaySet map[Date]string

func (h HolidaySet) Contains(d Date) bool {
	_, ok := h[d]
	return ok
}

func (h HolidaySet) Add(d Date, name string) {
	h[d] = name
}

// Merge returns the union of two holiday sets. Used when a request range
// spans a year boundary and per-year sets must be combined.
func (h HolidaySet) Merge(other HolidaySet) HolidaySet {
	merged := make(HolidaySet, len(h)+len(other))
	for d, name := range h {
		merged[d] = name
	}
	for d, name := range other {
		merged[d] = name
	}
	return merged
}

// =============================================================================
// DAY COUNTING - Pure, deterministic range arithmetic
// =============================================================================

// InclusiveDayCount returns the number of calendar days in [start, end],
// counting both endpoints. Returns ErrInvalidRange when end precedes start.
func InclusiveDayCount(start, end Date) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	return int(end.t.Sub(start.t).Hours()/24) + 1, nil
}

// ChargeableDayCount returns how many days in [start, end] count against a
// leave balance: weekends are excluded when excludeWeekends is set, and any
// date present in holidays is excluded. A range landing entirely on excluded
// days yields 0; callers decide whether that is acceptable.
func ChargeableDayCount(start, end Date, excludeWeekends bool, holidays HolidaySet) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}

	count := 0
	for day := start; day.BeforeOrEqual(end); day = day.AddDays(1) {
		if excludeWeekends && day.IsWeekend() {
			continue
		}
		if holidays.Contains(day) {
			continue
		}
		count++
	}
	return count, nil
}
