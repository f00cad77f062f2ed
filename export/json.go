/*
Package export writes attendance snapshots to the formats people open:
a JSON document, a one-day Excel workbook and a cumulative Excel archive.

PURPOSE:
  The attendance engine never touches disk. Everything format-specific
  lives here and consumes attendance.Snapshot values.

FILES:
  json.go     - JSON document (round-trips back into a Snapshot)
  workbook.go - daily workbook, one row per worker for a single date
  archive.go  - data.xlsx, appended on every save
  retry.go    - bounded retry with fixed delay for locked files
  exporter.go - Exporter interface and file-backed exporters

JSON SHAPE:
  {
      "1023": {
          "name": "J-Doe",
          "daily_record": {
              "2025-03-10": {
                  "time_in": "09:00:00",
                  "time_out": "18:05:00",
                  "overtime": 1.083333,
                  "worktime": 8.083611
              }
          }
      }
  }
*/
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

type workerJSON struct {
	Name        string                `json:"name"`
	DailyRecord map[string]recordJSON `json:"daily_record"`
}

type recordJSON struct {
	TimeIn   *string   `json:"time_in"`
	TimeOut  *string   `json:"time_out"`
	Overtime hoursJSON `json:"overtime"`
	Worktime hoursJSON `json:"worktime"`
}

// hoursJSON writes a decimal as a bare JSON number.
type hoursJSON decimal.Decimal

func (h hoursJSON) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(h).String()), nil
}

func (h *hoursJSON) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid hours %s: %w", data, err)
	}
	*h = hoursJSON(d)
	return nil
}

// =============================================================================
// WRITE / READ
// =============================================================================

// MarshalSnapshot renders the snapshot with four-space indentation.
func MarshalSnapshot(snap attendance.Snapshot) ([]byte, error) {
	doc := make(map[string]workerJSON, len(snap.Workers))
	for _, w := range snap.Workers {
		days := make(map[string]recordJSON, len(w.Days))
		for _, d := range w.Days {
			days[d.Date.String()] = recordJSON{
				TimeIn:   clockString(d.Record.TimeIn),
				TimeOut:  clockString(d.Record.TimeOut),
				Overtime: hoursJSON(d.Record.Overtime),
				Worktime: hoursJSON(d.Record.Worktime),
			}
		}
		doc[string(w.ID)] = workerJSON{Name: w.Name, DailyRecord: days}
	}
	return json.MarshalIndent(doc, "", "    ")
}

// WriteJSON writes the snapshot document to w.
func WriteJSON(w io.Writer, snap attendance.Snapshot) error {
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadJSON parses a document produced by WriteJSON. Workers come back in id
// order since the document is a JSON object.
func ReadJSON(r io.Reader) (attendance.Snapshot, error) {
	var doc map[string]workerJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return attendance.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	snap := attendance.Snapshot{Workers: make([]attendance.WorkerSnapshot, 0, len(doc))}
	for _, id := range sortedKeys(doc) {
		w := doc[id]
		ws := attendance.WorkerSnapshot{ID: attendance.WorkerID(id), Name: w.Name}
		for _, ds := range sortedKeys(w.DailyRecord) {
			date, err := attendance.ParseDate(ds)
			if err != nil {
				return attendance.Snapshot{}, fmt.Errorf("worker %s: %w", id, err)
			}
			rec, err := w.DailyRecord[ds].toRecord()
			if err != nil {
				return attendance.Snapshot{}, fmt.Errorf("worker %s on %s: %w", id, ds, err)
			}
			ws.Days = append(ws.Days, attendance.DayRecord{Date: date, Record: rec})
		}
		snap.Workers = append(snap.Workers, ws)
	}
	return snap, nil
}

func (r recordJSON) toRecord() (attendance.DailyRecord, error) {
	in, err := parseClock(r.TimeIn)
	if err != nil {
		return attendance.DailyRecord{}, err
	}
	out, err := parseClock(r.TimeOut)
	if err != nil {
		return attendance.DailyRecord{}, err
	}
	rec := attendance.DailyRecord{
		TimeIn:   in,
		TimeOut:  out,
		Overtime: decimal.Decimal(r.Overtime),
		Worktime: decimal.Decimal(r.Worktime),
	}
	if err := rec.Validate(); err != nil {
		return attendance.DailyRecord{}, err
	}
	return rec, nil
}

func clockString(c *attendance.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}

func parseClock(s *string) (*attendance.ClockTime, error) {
	if s == nil {
		return nil, nil
	}
	c, err := attendance.ParseClock(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
