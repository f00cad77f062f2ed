package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// DAILY WORKBOOK - One row per worker for a single date
// =============================================================================

const (
	DailySheet = "Daily Attendance"
	missing    = "None"
)

// DailyHeader is the first row of the daily workbook.
var DailyHeader = []string{"ID", "Name", "Time In", "Time Out", "Overtime (hrs)", "Worktime (hrs)", "Date"}

// DailyRows returns the table for date: header first, then every worker
// with a record on that date, in first-seen order.
func DailyRows(snap attendance.Snapshot, date attendance.Date) [][]string {
	rows := [][]string{DailyHeader}
	for _, e := range snap.Day(date) {
		rows = append(rows, []string{
			string(e.WorkerID),
			e.Name,
			clockOrNone(e.Record.TimeIn, attendance.ClockTime.String),
			clockOrNone(e.Record.TimeOut, attendance.ClockTime.String),
			fixed2(e.Record.Overtime),
			fixed2(e.Record.Worktime),
			date.String(),
		})
	}
	return rows
}

// DailyWorkbook builds the one-day workbook. The caller owns the returned file.
func DailyWorkbook(snap attendance.Snapshot, date attendance.Date) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), DailySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeTable(f, DailySheet, 1, DailyRows(snap, date)); err != nil {
		f.Close()
		return nil, err
	}
	if err := boldRow(f, DailySheet, 1, len(DailyHeader)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteDailyWorkbook streams the one-day workbook to w.
func WriteDailyWorkbook(w io.Writer, snap attendance.Snapshot, date attendance.Date) error {
	f, err := DailyWorkbook(snap, date)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeTable(f *excelize.File, sheet string, firstRow int, rows [][]string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", firstRow+i, err)
		}
	}
	return nil
}

func boldRow(f *excelize.File, sheet string, row, cols int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func clockOrNone(c *attendance.ClockTime, format func(attendance.ClockTime) string) string {
	if c == nil {
		return missing
	}
	return format(*c)
}

func fixed2(d decimal.Decimal) string { return d.StringFixed(2) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
