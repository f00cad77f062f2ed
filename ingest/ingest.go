/*
Package ingest is the actor that feeds badge scans into the attendance store.

FLOW (per payload):
  1. Scanner switched off?  -> drop
  2. ParseScan fails?       -> attendance.ErrParse, throttle untouched
  3. Throttle.TryAccept     -> ErrThrottled, or the window is claimed
  4. Store.Apply            -> ScanResult
  5. Listeners notified     (scan log, autosave); their errors are logged only

The on/off switch only gates the background Run loop. Process is also used
directly by the HTTP scan endpoint and shares the same throttle.

SEE ALSO:
  - attendance/throttle.go: the rate-limit policy
  - api/handlers.go: POST /api/scans
*/
package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/export"
)

// ErrThrottled is returned when a scan arrives inside the throttle window.
var ErrThrottled = errors.New("scan throttled")

// Listener observes applied scans.
type Listener interface {
	ScanApplied(ctx context.Context, at time.Time, res attendance.ScanResult) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, at time.Time, res attendance.ScanResult) error

func (f ListenerFunc) ScanApplied(ctx context.Context, at time.Time, res attendance.ScanResult) error {
	return f(ctx, at, res)
}

// Ingestor owns the throttle and the on/off switch.
type Ingestor struct {
	Store     *attendance.Store
	Throttle  *attendance.Throttle
	Listeners []Listener

	// Now is the scan clock; defaults to time.Now.
	Now func() time.Time

	running atomic.Bool
}

// New returns a stopped ingestor.
func New(store *attendance.Store, throttle *attendance.Throttle, listeners ...Listener) *Ingestor {
	return &Ingestor{Store: store, Throttle: throttle, Listeners: listeners, Now: time.Now}
}

// Start switches the scanner on. Returns false if it was already on.
func (in *Ingestor) Start() bool {
	if !in.running.CompareAndSwap(false, true) {
		return false
	}
	log.Println("[Ingest] Scanner is ON")
	return true
}

// Stop switches the scanner off. Returns false if it was already off.
func (in *Ingestor) Stop() bool {
	if !in.running.CompareAndSwap(true, false) {
		return false
	}
	log.Println("[Ingest] Scanner is OFF")
	return true
}

func (in *Ingestor) Running() bool { return in.running.Load() }

// Run pulls payloads from src until it is exhausted or ctx is cancelled.
// Rejected payloads are logged and dropped.
func (in *Ingestor) Run(ctx context.Context, src Source) error {
	for {
		text, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if !in.Running() {
			continue
		}

		res, err := in.Process(ctx, text)
		switch {
		case errors.Is(err, ErrThrottled):
		case err != nil:
			log.Printf("[Ingest] Dropped scan: %v", err)
		default:
			log.Printf("[Ingest] %s %s (%s) on %s", res.Outcome, res.WorkerID, res.Name, res.Date)
		}
	}
}

// Process runs one payload through throttle, parser and store.
func (in *Ingestor) Process(ctx context.Context, text string) (attendance.ScanResult, error) {
	ident, err := attendance.ParseScan(text)
	if err != nil {
		return attendance.ScanResult{}, err
	}

	// Claim the window before listeners run; they may block on disk.
	now := in.now()
	if !in.Throttle.TryAccept(now) {
		return attendance.ScanResult{}, ErrThrottled
	}
	return in.apply(ctx, ident, now), nil
}

// Backfill applies a manually entered scan at an explicit time. The
// throttle neither blocks nor records it.
func (in *Ingestor) Backfill(ctx context.Context, text string, at time.Time) (attendance.ScanResult, error) {
	ident, err := attendance.ParseScan(text)
	if err != nil {
		return attendance.ScanResult{}, err
	}
	return in.apply(ctx, ident, at), nil
}

func (in *Ingestor) apply(ctx context.Context, ident attendance.ScanIdentity, at time.Time) attendance.ScanResult {
	res := in.Store.Apply(attendance.ScanEvent{ScanIdentity: ident, At: at})
	for _, l := range in.Listeners {
		if err := l.ScanApplied(ctx, at, res); err != nil {
			log.Printf("[Ingest] Listener failed for %s: %v", res.WorkerID, err)
		}
	}
	return res
}

func (in *Ingestor) now() time.Time {
	if in.Now == nil {
		return time.Now()
	}
	return in.Now()
}

// =============================================================================
// LISTENERS
// =============================================================================

// ScanLog is the append-only scan history (store/sqlite implements it).
type ScanLog interface {
	AppendScan(ctx context.Context, at time.Time, res attendance.ScanResult) (string, error)
}

// LogScans records every applied scan, ignored ones included.
func LogScans(scanLog ScanLog) Listener {
	return ListenerFunc(func(ctx context.Context, at time.Time, res attendance.ScanResult) error {
		_, err := scanLog.AppendScan(ctx, at, res)
		return err
	})
}

// ExportOnChange snapshots the store after every scan that changed it and
// hands the snapshot to each exporter. All exporters run even if one fails.
func ExportOnChange(store *attendance.Store, exporters ...export.Exporter) Listener {
	return ListenerFunc(func(ctx context.Context, _ time.Time, res attendance.ScanResult) error {
		if !res.Outcome.Changed() {
			return nil
		}
		snap := store.Snapshot()
		var errs []error
		for _, e := range exporters {
			if err := e.Export(ctx, snap); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
