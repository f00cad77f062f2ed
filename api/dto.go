package api

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// SCAN DTOs
// =============================================================================

// ScanRequest carries one decoded badge payload. At backfills a scan at an
// explicit time; without it the scan is stamped now and throttled like the
// reader.
type ScanRequest struct {
	Text string     `json:"text"`
	At   *time.Time `json:"at,omitempty"`
}

type ScanResponse struct {
	Outcome  string    `json:"outcome"`
	WorkerID string    `json:"worker_id"`
	Name     string    `json:"name"`
	Date     string    `json:"date"`
	Record   RecordDTO `json:"record"`
}

type ScanEventDTO struct {
	ID        string `json:"id"`
	WorkerID  string `json:"worker_id"`
	Name      string `json:"name"`
	ScannedAt string `json:"scanned_at"`
	Outcome   string `json:"outcome"`
}

// =============================================================================
// RECORD DTOs
// =============================================================================

type RecordDTO struct {
	TimeIn   *string `json:"time_in"`
	TimeOut  *string `json:"time_out"`
	Overtime float64 `json:"overtime"`
	Worktime float64 `json:"worktime"`
	Complete bool    `json:"complete"`
}

type WorkerDTO struct {
	ID   string               `json:"id"`
	Name string               `json:"name"`
	Days map[string]RecordDTO `json:"days"`
}

type DayEntryDTO struct {
	WorkerID string    `json:"worker_id"`
	Name     string    `json:"name"`
	Record   RecordDTO `json:"record"`
}

// AttendanceDTO is the board for one date.
type AttendanceDTO struct {
	Date         string        `json:"date"`
	TotalWorkers int           `json:"total_workers"`
	Present      int           `json:"present"`
	Entries      []DayEntryDTO `json:"entries"`
}

// =============================================================================
// CONTROL DTOs
// =============================================================================

type ScannerStatusDTO struct {
	Running  bool   `json:"running"`
	Throttle string `json:"throttle"`
	Workers  int    `json:"workers"`
}

type ImportResponse struct {
	Workers int `json:"workers"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRecordDTO(r attendance.DailyRecord) RecordDTO {
	overtime, _ := r.Overtime.Float64()
	worktime, _ := r.Worktime.Float64()
	return RecordDTO{
		TimeIn:   clockPtr(r.TimeIn),
		TimeOut:  clockPtr(r.TimeOut),
		Overtime: overtime,
		Worktime: worktime,
		Complete: r.Complete(),
	}
}

func toScanResponse(res attendance.ScanResult) ScanResponse {
	return ScanResponse{
		Outcome:  string(res.Outcome),
		WorkerID: string(res.WorkerID),
		Name:     res.Name,
		Date:     res.Date.String(),
		Record:   toRecordDTO(res.Record),
	}
}

func toWorkerDTO(w attendance.WorkerSnapshot) WorkerDTO {
	dto := WorkerDTO{ID: string(w.ID), Name: w.Name, Days: make(map[string]RecordDTO, len(w.Days))}
	for _, d := range w.Days {
		dto.Days[d.Date.String()] = toRecordDTO(d.Record)
	}
	return dto
}

func toScanEventDTO(e sqlite.ScanEvent) ScanEventDTO {
	return ScanEventDTO{
		ID:        e.ID,
		WorkerID:  string(e.WorkerID),
		Name:      e.Name,
		ScannedAt: e.ScannedAt.Format(time.RFC3339),
		Outcome:   string(e.Outcome),
	}
}

func clockPtr(c *attendance.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}
