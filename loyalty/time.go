package loyalty

import "time"

// =============================================================================
// DATE - Day-granularity time point (program validity windows)
// =============================================================================

// Date is a calendar date in UTC. Program validity windows are defined
// at date granularity; access events keep full timestamps.
type Date struct {
	Time time.Time
}

// NewDate builds a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// Today returns the current UTC calendar day.
func Today() Date { return DateOf(time.Now()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Properties
func (d Date) Year() int  { return d.Time.Year() }
func (d Date) IsZero() bool { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// =============================================================================
// YEAR WINDOW - The accounting period for eligibility
// =============================================================================

// YearWindow returns the half-open timestamp range covering calendar
// year y: [Jan 1 y 00:00 UTC, Jan 1 y+1 00:00 UTC). Access counting
// for eligibility always uses this window.
func YearWindow(y int) (start, end time.Time) {
	start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, end
}
