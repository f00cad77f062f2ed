package attendance

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day a daily record belongs to
// =============================================================================

// Date is a naive calendar date. Attendance keeps local wall-clock values only,
// there is no timezone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// NewDate builds a Date, normalizing out-of-range components the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date component of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the local calendar date.
func Today() Date { return DateOf(time.Now()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) toTime() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

func (d Date) Before(other Date) bool { return d.toTime().Before(other.toTime()) }
func (d Date) After(other Date) bool  { return d.toTime().After(other.toTime()) }
func (d Date) IsZero() bool           { return d == Date{} }
func (d Date) AddDays(n int) Date     { return DateOf(d.toTime().AddDate(0, 0, n)) }
func (d Date) String() string         { return d.toTime().Format(dateLayout) }

// Compact renders the date as YYYYMMDD, used in export file names.
func (d Date) Compact() string { return d.toTime().Format("20060102") }

// At combines the date with a time of day.
func (d Date) At(c ClockTime) time.Time {
	return d.toTime().Add(time.Duration(c) * time.Second)
}

// =============================================================================
// CLOCK TIME - Time of day with second resolution
// =============================================================================

// ClockTime is a time of day stored as seconds since midnight (0..86399).
type ClockTime int32

const (
	clockLayout   = "15:04:05"
	kitchenLayout = "03:04 PM"
	secondsPerDay = 24 * 60 * 60
)

// NewClockTime builds a ClockTime from its components.
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime(hour*3600 + minute*60 + second)
}

// ClockOf truncates t to its time of day at second resolution.
func ClockOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute(), t.Second())
}

// ParseClock parses an HH:MM:SS string.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockOf(t), nil
}

func (c ClockTime) Hour() int   { return int(c) / 3600 }
func (c ClockTime) Minute() int { return int(c) % 3600 / 60 }
func (c ClockTime) Second() int { return int(c) % 60 }

func (c ClockTime) Before(other ClockTime) bool { return c < other }
func (c ClockTime) After(other ClockTime) bool  { return c > other }

// Sub returns c - other as a duration; negative when c is earlier.
func (c ClockTime) Sub(other ClockTime) time.Duration {
	return time.Duration(int(c)-int(other)) * time.Second
}

func (c ClockTime) asTime() time.Time {
	return time.Date(0, time.January, 1, c.Hour(), c.Minute(), c.Second(), 0, time.UTC)
}

// String renders HH:MM:SS.
func (c ClockTime) String() string { return c.asTime().Format(clockLayout) }

// Kitchen renders a 12-hour clock with AM/PM suffix, e.g. "06:05 PM".
func (c ClockTime) Kitchen() string { return c.asTime().Format(kitchenLayout) }

// Valid reports whether c is a real time of day.
func (c ClockTime) Valid() bool { return c >= 0 && c < secondsPerDay }
