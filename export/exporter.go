package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// EXPORTER - A destination for snapshots
// =============================================================================

// Exporter persists a snapshot somewhere. Failures never affect the store.
type Exporter interface {
	Name() string
	Export(ctx context.Context, snap attendance.Snapshot) error
}

// Compile-time checks
var (
	_ Exporter = (*JSONFile)(nil)
	_ Exporter = (*DailyFile)(nil)
	_ Exporter = (*Archive)(nil)
)

// =============================================================================
// JSON FILE - data_YYYYMMDD.json, rewritten after every accepted scan
// =============================================================================

type JSONFile struct {
	Dir   string
	Retry RetryPolicy

	// Date picks the file name; defaults to attendance.Today.
	Date func() attendance.Date
}

func NewJSONFile(dir string, retry RetryPolicy) *JSONFile {
	return &JSONFile{Dir: dir, Retry: retry, Date: attendance.Today}
}

func (j *JSONFile) Name() string { return "json" }

// Path returns the file written for date.
func (j *JSONFile) Path(date attendance.Date) string {
	return filepath.Join(j.Dir, fmt.Sprintf("data_%s.json", date.Compact()))
}

func (j *JSONFile) Export(ctx context.Context, snap attendance.Snapshot) error {
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := j.Path(today(j.Date))
	return Retry(ctx, j.Retry, path, func() error {
		return writeFileAtomic(path, data)
	})
}

func today(clock func() attendance.Date) attendance.Date {
	if clock == nil {
		return attendance.Today()
	}
	return clock()
}

// =============================================================================
// DAILY FILE - attendance_YYYYMMDD.xlsx for the current date
// =============================================================================

type DailyFile struct {
	Dir   string
	Retry RetryPolicy
	Date  func() attendance.Date
}

func NewDailyFile(dir string, retry RetryPolicy) *DailyFile {
	return &DailyFile{Dir: dir, Retry: retry, Date: attendance.Today}
}

func (d *DailyFile) Name() string { return "daily-xlsx" }

func (d *DailyFile) Path(date attendance.Date) string {
	return filepath.Join(d.Dir, fmt.Sprintf("attendance_%s.xlsx", date.Compact()))
}

func (d *DailyFile) Export(ctx context.Context, snap attendance.Snapshot) error {
	date := today(d.Date)

	var buf bytes.Buffer
	if err := WriteDailyWorkbook(&buf, snap, date); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := d.Path(date)
	return Retry(ctx, d.Retry, path, func() error {
		return writeFileAtomic(path, buf.Bytes())
	})
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
