package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/warp/attendance-engine/attendance"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// CUMULATIVE ARCHIVE - data.xlsx, appended on every save
// =============================================================================

const (
	ArchiveSheet    = "Attendance Data"
	ArchiveFileName = "data.xlsx"
)

// ArchiveHeader is written once, when the archive file is created.
var ArchiveHeader = []string{"ID", "Name", "Date", "Time In", "Time Out", "Overtime (hrs)", "Worktime (hrs)"}

// ArchiveRows returns the block appended on one save: a single-cell marker
// row with the save date, then every (worker, date) pair in the snapshot.
// Times use a 12-hour clock.
func ArchiveRows(snap attendance.Snapshot, savedOn attendance.Date) [][]string {
	rows := [][]string{{savedOn.String()}}
	for _, e := range snap.Rows() {
		rows = append(rows, []string{
			string(e.WorkerID),
			e.Name,
			e.Date.String(),
			clockOrNone(e.Record.TimeIn, attendance.ClockTime.Kitchen),
			clockOrNone(e.Record.TimeOut, attendance.ClockTime.Kitchen),
			fixed2(e.Record.Overtime),
			fixed2(e.Record.Worktime),
		})
	}
	return rows
}

// Archive appends snapshots to a workbook on disk.
type Archive struct {
	Path  string
	Retry RetryPolicy
}

// NewArchive returns an archive stored as data.xlsx inside dir.
func NewArchive(dir string, retry RetryPolicy) *Archive {
	return &Archive{Path: filepath.Join(dir, ArchiveFileName), Retry: retry}
}

// Name identifies the archive in logs.
func (a *Archive) Name() string { return "archive" }

// Export appends the snapshot under today's marker row.
func (a *Archive) Export(ctx context.Context, snap attendance.Snapshot) error {
	return a.Append(ctx, snap, attendance.Today())
}

// Append opens (or creates) the archive, appends one block and saves it,
// retrying the save while the file is locked by another program.
func (a *Archive) Append(ctx context.Context, snap attendance.Snapshot, savedOn attendance.Date) error {
	f, sheet, err := openArchive(a.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read archive rows: %w", err)
	}
	if err := writeTable(f, sheet, len(existing)+1, ArchiveRows(snap, savedOn)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	return Retry(ctx, a.Retry, a.Path, func() error {
		return f.SaveAs(a.Path)
	})
}

func openArchive(path string) (*excelize.File, string, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, f.GetSheetName(0), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to open archive: %w", err)
	}

	f = excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ArchiveSheet); err != nil {
		f.Close()
		return nil, "", err
	}
	if err := writeTable(f, ArchiveSheet, 1, [][]string{ArchiveHeader}); err != nil {
		f.Close()
		return nil, "", err
	}
	if err := boldRow(f, ArchiveSheet, 1, len(ArchiveHeader)); err != nil {
		f.Close()
		return nil, "", err
	}
	return f, ArchiveSheet, nil
}
