/*
handlers.go - HTTP API handlers for the attendance console

PURPOSE:
  Exposes the attendance store, the badge reader switch and the exports over
  REST. Handles request/response and JSON, and delegates to the attendance,
  ingest and export packages.

ENDPOINTS:
  Scans:
    POST   /api/scans                  Submit a decoded badge payload
    GET    /api/scans?worker=&limit=   Scan log, newest first

  Workers:
    GET    /api/workers                All workers in first-seen order
    GET    /api/workers/{id}           One worker with every day
    GET    /api/attendance?date=       Board for a date (default today)

  Exports:
    GET    /api/export/json            Full JSON document
    GET    /api/export/xlsx?date=      Daily workbook
    POST   /api/export/archive         Append to the cumulative archive
    POST   /api/export/daily           Run the scheduled exports now
    POST   /api/import/json            Replace state from a JSON document

  Scanner:
    GET    /api/scanner                Switch state
    POST   /api/scanner/start          Switch on
    POST   /api/scanner/stop           Switch off

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status:
  - 400: Malformed body or query
  - 404: Unknown worker
  - 422: Payload is not a badge scan
  - 429: Scan inside the throttle window
  - 500: Export or database failure
  - 503: Scheduler not configured

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ingest/ingest.go: The scan pipeline shared with the reader
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/export"
	"github.com/warp/attendance-engine/ingest"
	"github.com/warp/attendance-engine/store/sqlite"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *attendance.Store
	DB        *sqlite.Store
	Ingest    *ingest.Ingestor
	Archive   export.Exporter
	Scheduler *ExportScheduler
}

// NewHandler creates a handler. Scheduler is optional and set by the caller;
// without it POST /api/export/daily answers 503.
func NewHandler(store *attendance.Store, db *sqlite.Store, in *ingest.Ingestor, archive export.Exporter) *Handler {
	return &Handler{Store: store, DB: db, Ingest: in, Archive: archive}
}

// =============================================================================
// SCAN HANDLERS
// =============================================================================

// SubmitScan runs a payload through the same pipeline as the badge reader.
func (h *Handler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		res attendance.ScanResult
		err error
	)
	if req.At != nil {
		res, err = h.Ingest.Backfill(r.Context(), req.Text, *req.At)
	} else {
		res, err = h.Ingest.Process(r.Context(), req.Text)
	}

	switch {
	case errors.Is(err, ingest.ErrThrottled):
		writeError(w, http.StatusTooManyRequests, "Scan throttled", err)
		return
	case errors.Is(err, attendance.ErrParse):
		writeError(w, http.StatusUnprocessableEntity, "Not a badge scan", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to apply scan", err)
		return
	}

	writeJSON(w, http.StatusOK, toScanResponse(res))
}

// ListScans returns the scan log.
func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	workerID := attendance.WorkerID(r.URL.Query().Get("worker"))

	events, err := h.DB.ListScans(r.Context(), workerID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list scans", err)
		return
	}

	dtos := make([]ScanEventDTO, len(events))
	for i, e := range events {
		dtos[i] = toScanEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns every worker in first-seen order.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	dtos := make([]WorkerDTO, len(snap.Workers))
	for i, ws := range snap.Workers {
		dtos[i] = toWorkerDTO(ws)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWorker returns one worker.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	id := attendance.WorkerID(chi.URLParam(r, "id"))

	rec, err := h.Store.Lookup(id)
	if err != nil {
		if attendance.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Worker not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get worker", err)
		return
	}

	dto := WorkerDTO{ID: string(rec.ID), Name: rec.Name, Days: make(map[string]RecordDTO, len(rec.Days))}
	for date, day := range rec.Days {
		dto.Days[date.String()] = toRecordDTO(day)
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetAttendance returns the board for ?date= (default today).
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	snap := h.Store.Snapshot()
	entries := snap.Day(date)

	resp := AttendanceDTO{
		Date:         date.String(),
		TotalWorkers: len(snap.Workers),
		Present:      len(entries),
		Entries:      make([]DayEntryDTO, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = DayEntryDTO{WorkerID: string(e.WorkerID), Name: e.Name, Record: toRecordDTO(e.Record)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// ExportJSON streams the full state as the JSON document.
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, h.Store.Snapshot()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode state", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="data_%s.json"`, attendance.Today().Compact()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportWorkbook streams the daily workbook for ?date= (default today).
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDailyWorkbook(&buf, h.Store.Snapshot(), date); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance_%s.xlsx"`, date.Compact()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportArchive appends the current state to the cumulative archive.
func (h *Handler) ExportArchive(w http.ResponseWriter, r *http.Request) {
	if err := h.Archive.Export(r.Context(), h.Store.Snapshot()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to write archive", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Message: "archive updated"})
}

// ExportDaily runs the scheduled daily exports immediately.
func (h *Handler) ExportDaily(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Scheduler not configured", nil)
		return
	}
	if !h.Scheduler.RunNow(r.Context()) {
		writeError(w, http.StatusInternalServerError, "Daily export failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Message: "daily export written"})
}

// ImportJSON replaces the in-memory state and the database with a JSON
// document. The scan log is cleared with it, in the same transaction.
func (h *Handler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := export.ReadJSON(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attendance document", err)
		return
	}

	if err := h.DB.ReplaceSnapshot(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save imported state", err)
		return
	}
	h.Store.Restore(snap)

	writeJSON(w, http.StatusOK, ImportResponse{Workers: len(snap.Workers)})
}

// =============================================================================
// SCANNER HANDLERS
// =============================================================================

func (h *Handler) ScannerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scannerStatus())
}

func (h *Handler) StartScanner(w http.ResponseWriter, r *http.Request) {
	h.Ingest.Start()
	writeJSON(w, http.StatusOK, h.scannerStatus())
}

func (h *Handler) StopScanner(w http.ResponseWriter, r *http.Request) {
	h.Ingest.Stop()
	writeJSON(w, http.StatusOK, h.scannerStatus())
}

func (h *Handler) scannerStatus() ScannerStatusDTO {
	return ScannerStatusDTO{
		Running:  h.Ingest.Running(),
		Throttle: h.Ingest.Throttle.Interval().String(),
		Workers:  h.Store.Len(),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func dateParam(r *http.Request) (attendance.Date, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return attendance.Today(), nil
	}
	return attendance.ParseDate(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
