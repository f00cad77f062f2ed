package attendance

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// STORE - The sole authority on attendance state
// =============================================================================

// Store holds every worker seen since start (or since the last Restore).
// It is created once by the process and handed to the ingestion actor, the
// export scheduler and the HTTP handlers. The mutex is the only
// synchronization; ApplyScan never blocks on I/O.
type Store struct {
	mu      sync.RWMutex
	shift   Shift
	workers map[WorkerID]*WorkerRecord
	order   []WorkerID // first-seen order, used for exports
}

// NewStore returns an empty store using the given shift boundaries.
func NewStore(shift Shift) *Store {
	return &Store{
		shift:   shift,
		workers: make(map[WorkerID]*WorkerRecord),
	}
}

// NewStoreFromSnapshot returns a store pre-loaded with snap.
func NewStoreFromSnapshot(shift Shift, snap Snapshot) *Store {
	s := NewStore(shift)
	s.Restore(snap)
	return s
}

// Shift returns the accounting boundaries the store applies.
func (s *Store) Shift() Shift { return s.shift }

// ApplyScan moves the worker's record for ts's date one step forward:
// unset -> time-in -> time-out -> ignored.
func (s *Store) ApplyScan(id WorkerID, name string, ts time.Time) ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := DateOf(ts)
	at := ClockOf(ts)

	worker, ok := s.workers[id]
	if !ok {
		worker = &WorkerRecord{ID: id, Name: name, Days: make(map[Date]DailyRecord)}
		s.workers[id] = worker
		s.order = append(s.order, id)
	}
	record := worker.Days[date]

	var outcome Outcome
	switch {
	case record.TimeIn == nil:
		record.TimeIn = &at
		outcome = OutcomeTimeIn
	case record.TimeOut == nil:
		record.TimeOut = &at
		record.Worktime = s.shift.Worktime(record.TimeIn, record.TimeOut)
		record.Overtime = s.shift.Overtime(at)
		outcome = OutcomeTimeOut
	default:
		outcome = OutcomeIgnored
	}

	if outcome.Changed() {
		worker.Name = name
		worker.Days[date] = record
	}

	return ScanResult{
		Outcome:  outcome,
		WorkerID: id,
		Name:     worker.Name,
		Date:     date,
		Record:   record.Clone(),
	}
}

// Apply is ApplyScan for a parsed event.
func (s *Store) Apply(ev ScanEvent) ScanResult {
	return s.ApplyScan(ev.WorkerID, ev.Name, ev.At)
}

// Lookup returns a copy of one worker's record.
func (s *Store) Lookup(id WorkerID) (WorkerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	worker, ok := s.workers[id]
	if !ok {
		return WorkerRecord{}, ErrWorkerNotFound
	}
	return cloneWorker(worker), nil
}

// Len returns the number of distinct workers seen.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a deep copy of the whole state. Workers keep first-seen
// order, days within a worker are chronological.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Workers: make([]WorkerSnapshot, 0, len(s.order))}
	for _, id := range s.order {
		w := s.workers[id]
		ws := WorkerSnapshot{ID: w.ID, Name: w.Name, Days: make([]DayRecord, 0, len(w.Days))}
		for date, rec := range w.Days {
			ws.Days = append(ws.Days, DayRecord{Date: date, Record: rec.Clone()})
		}
		sort.Slice(ws.Days, func(i, j int) bool { return ws.Days[i].Date.Before(ws.Days[j].Date) })
		snap.Workers = append(snap.Workers, ws)
	}
	return snap
}

// Restore replaces the store's content with snap.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workers = make(map[WorkerID]*WorkerRecord, len(snap.Workers))
	s.order = nil
	for _, ws := range snap.Workers {
		w, ok := s.workers[ws.ID]
		if !ok {
			w = &WorkerRecord{ID: ws.ID, Days: make(map[Date]DailyRecord, len(ws.Days))}
			s.workers[ws.ID] = w
			s.order = append(s.order, ws.ID)
		}
		w.Name = ws.Name
		for _, d := range ws.Days {
			w.Days[d.Date] = d.Record.Clone()
		}
	}
}

func cloneWorker(w *WorkerRecord) WorkerRecord {
	days := make(map[Date]DailyRecord, len(w.Days))
	for d, r := range w.Days {
		days[d] = r.Clone()
	}
	return WorkerRecord{ID: w.ID, Name: w.Name, Days: days}
}
