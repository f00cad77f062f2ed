/*
Package attendance turns badge scans into daily time-accounting records.

PURPOSE:
  A worker scans a badge when arriving and again when leaving. The first
  scan of a day records time-in, the second records time-out and computes
  worktime (lunch removed) and overtime (past end of shift). Anything after
  that is ignored until the next calendar day.

KEY CONCEPTS:
  - ScanIdentity: worker id + display name parsed from badge text (scan.go)
  - DailyRecord:  time-in/time-out and computed hours for one worker-day
  - Store:        the owned, in-memory authority on attendance state (store.go)
  - Snapshot:     deep read-only copy consumed by exporters (snapshot.go)
  - Shift:        lunch and end-of-shift boundaries (accounting.go)
  - Throttle:     minimum interval between accepted scans (throttle.go)

DESIGN PRINCIPLES:
  1. No I/O: parsing, accounting and ApplyScan never touch disk or network.
  2. Precision: hours are decimal.Decimal, rounded to HoursPrecision places.
  3. Append-only growth: workers and days are never deleted by the engine.

SEE ALSO:
  - export/: JSON and XLSX writers
  - store/sqlite: durable copy of snapshots and the scan log
  - ingest/: the actor feeding scans into the Store
*/
package attendance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OUTCOME - What a scan did to the day's record
// =============================================================================

type Outcome string

const (
	OutcomeTimeIn  Outcome = "time_in"  // first scan of the day
	OutcomeTimeOut Outcome = "time_out" // second scan, hours computed
	OutcomeIgnored Outcome = "ignored"  // day already complete, nothing changed
)

// Changed reports whether the outcome modified the store.
func (o Outcome) Changed() bool { return o != OutcomeIgnored }

// =============================================================================
// DAILY RECORD - One worker, one calendar date
// =============================================================================

type DailyRecord struct {
	TimeIn   *ClockTime
	TimeOut  *ClockTime
	Overtime decimal.Decimal // hours
	Worktime decimal.Decimal // hours
}

// Complete reports whether both time-in and time-out are recorded.
func (r DailyRecord) Complete() bool { return r.TimeIn != nil && r.TimeOut != nil }

// Validate rejects a time-out without a time-in. The store never builds
// one; imports and the database can.
func (r DailyRecord) Validate() error {
	if r.TimeOut != nil && r.TimeIn == nil {
		return fmt.Errorf("%w: time out %s without time in", ErrInvalidRecord, r.TimeOut)
	}
	return nil
}

// Clone returns a copy that shares no pointers with r.
func (r DailyRecord) Clone() DailyRecord {
	return DailyRecord{
		TimeIn:   cloneClock(r.TimeIn),
		TimeOut:  cloneClock(r.TimeOut),
		Overtime: r.Overtime,
		Worktime: r.Worktime,
	}
}

// Equal compares by value; decimals compare numerically.
func (r DailyRecord) Equal(other DailyRecord) bool {
	return clockEqual(r.TimeIn, other.TimeIn) &&
		clockEqual(r.TimeOut, other.TimeOut) &&
		r.Overtime.Equal(other.Overtime) &&
		r.Worktime.Equal(other.Worktime)
}

func cloneClock(c *ClockTime) *ClockTime {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func clockEqual(a, b *ClockTime) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// =============================================================================
// WORKER RECORD
// =============================================================================

type WorkerRecord struct {
	ID   WorkerID
	Name string
	Days map[Date]DailyRecord
}

// =============================================================================
// SCAN RESULT - Returned by Store.ApplyScan
// =============================================================================

type ScanResult struct {
	Outcome  Outcome
	WorkerID WorkerID
	Name     string
	Date     Date
	Record   DailyRecord // state after the scan, a copy
}
