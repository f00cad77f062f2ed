package attendance

import "fmt"

// =============================================================================
// SNAPSHOT - Frozen view of the store handed to exporters
// =============================================================================

// Snapshot is a point-in-time copy of the store. Nothing in it aliases store
// memory, so exporters may hold and modify it freely.
type Snapshot struct {
	Workers []WorkerSnapshot
}

type WorkerSnapshot struct {
	ID   WorkerID
	Name string
	Days []DayRecord // chronological
}

type DayRecord struct {
	Date   Date
	Record DailyRecord
}

// DayEntry is one row of a single-day board: who scanned and what they have so far.
type DayEntry struct {
	WorkerID WorkerID
	Name     string
	Date     Date
	Record   DailyRecord
}

// Day returns the entries recorded on date, in worker first-seen order.
func (s Snapshot) Day(date Date) []DayEntry {
	var entries []DayEntry
	for _, w := range s.Workers {
		for _, d := range w.Days {
			if d.Date == date {
				entries = append(entries, DayEntry{WorkerID: w.ID, Name: w.Name, Date: date, Record: d.Record})
				break
			}
		}
	}
	return entries
}

// Rows flattens the snapshot into every (worker, date) pair.
func (s Snapshot) Rows() []DayEntry {
	var entries []DayEntry
	for _, w := range s.Workers {
		for _, d := range w.Days {
			entries = append(entries, DayEntry{WorkerID: w.ID, Name: w.Name, Date: d.Date, Record: d.Record})
		}
	}
	return entries
}

// Worker finds a worker by id.
func (s Snapshot) Worker(id WorkerID) (WorkerSnapshot, bool) {
	for _, w := range s.Workers {
		if w.ID == id {
			return w, true
		}
	}
	return WorkerSnapshot{}, false
}

// Equal compares two snapshots by worker set, names and records.
// Worker order is not significant.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.Workers) != len(other.Workers) {
		return false
	}
	for _, w := range s.Workers {
		o, ok := other.Worker(w.ID)
		if !ok || o.Name != w.Name || len(o.Days) != len(w.Days) {
			return false
		}
		for i := range w.Days {
			if w.Days[i].Date != o.Days[i].Date || !w.Days[i].Record.Equal(o.Days[i].Record) {
				return false
			}
		}
	}
	return true
}

// Validate checks every record, naming the first bad one.
func (s Snapshot) Validate() error {
	for _, w := range s.Workers {
		for _, d := range w.Days {
			if err := d.Record.Validate(); err != nil {
				return fmt.Errorf("worker %s on %s: %w", w.ID, d.Date, err)
			}
		}
	}
	return nil
}
