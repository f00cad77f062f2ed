package attendance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME ACCOUNTING - worktime and overtime for one completed day
// =============================================================================

// HoursPrecision is the number of decimal places kept on computed hours.
const HoursPrecision = 6

var secondsPerHour = decimal.NewFromInt(3600)

// Shift holds the clock boundaries used by the accounting rules.
type Shift struct {
	LunchStart ClockTime // worktime stops counting here
	LunchEnd   ClockTime // and resumes here
	ShiftEnd   ClockTime // overtime starts here
}

// DefaultShift is a 12:00:00-12:59:59 lunch and a 17:00:00 end of shift.
var DefaultShift = Shift{
	LunchStart: NewClockTime(12, 0, 0),
	LunchEnd:   NewClockTime(12, 59, 59),
	ShiftEnd:   NewClockTime(17, 0, 0),
}

// Worktime returns billable hours between in and out with the lunch window removed.
//
// The day splits into a morning segment [in, LunchStart] and an afternoon
// segment [LunchEnd, out]. Each is clamped at zero, so a shift inside the lunch
// window, or an out earlier than in, yields 0. Returns 0 if either time is nil.
func (s Shift) Worktime(in, out *ClockTime) decimal.Decimal {
	if in == nil || out == nil {
		return decimal.Zero
	}

	var seconds int64
	if in.Before(s.LunchStart) {
		if d := min(*out, s.LunchStart) - *in; d > 0 {
			seconds += int64(d)
		}
	}
	if out.After(s.LunchEnd) {
		if d := *out - max(*in, s.LunchEnd); d > 0 {
			seconds += int64(d)
		}
	}
	return hours(seconds)
}

// Overtime returns hours worked past ShiftEnd, or 0 when out is earlier.
func (s Shift) Overtime(out ClockTime) decimal.Decimal {
	if out.Before(s.ShiftEnd) {
		return decimal.Zero
	}
	return hours(int64(out - s.ShiftEnd))
}

// ComputeWorktime applies DefaultShift.Worktime.
func ComputeWorktime(in, out *ClockTime) decimal.Decimal { return DefaultShift.Worktime(in, out) }

// ComputeOvertime applies DefaultShift.Overtime.
func ComputeOvertime(out ClockTime) decimal.Decimal { return DefaultShift.Overtime(out) }

func hours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).DivRound(secondsPerHour, HoursPrecision)
}
