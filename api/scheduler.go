/*
scheduler.go - Daily workbook export scheduler

PURPOSE:
  Writes the daily attendance workbook once a day at a fixed wall-clock time
  (22:01 by default), whether or not anyone presses a button.

DESIGN:
  - Runs a background goroutine that wakes every CheckInterval (default: 1 minute)
  - Fires once the clock reaches Hour:Minute, at most once per date
  - A start after the export time still writes that day's workbook
  - Export failures are logged and retried on the next tick

USAGE:
  scheduler := NewExportScheduler(store, 22, 1, export.NewDailyFile(dir, retry))
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - export/exporter.go: DailyFile
  - handlers.go: GET /api/export/xlsx (on-demand workbook)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/export"
)

// ExportScheduler writes the daily exports at a fixed time of day.
type ExportScheduler struct {
	Store         *attendance.Store
	Exporters     []export.Exporter
	Hour, Minute  int
	CheckInterval time.Duration
	Enabled       bool

	// Now is the scheduler clock; defaults to time.Now.
	Now func() time.Time

	lastRun attendance.Date
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  *time.Ticker
	wg      sync.WaitGroup
	mu      sync.Mutex
	runMu   sync.Mutex
}

// NewExportScheduler creates an enabled scheduler.
func NewExportScheduler(store *attendance.Store, hour, minute int, exporters ...export.Exporter) *ExportScheduler {
	return &ExportScheduler{
		Store:         store,
		Exporters:     exporters,
		Hour:          hour,
		Minute:        minute,
		CheckInterval: time.Minute,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (es *ExportScheduler) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if es.ticker != nil {
		return
	}

	es.ctx, es.cancel = context.WithCancel(context.Background())
	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)

	go es.run()

	log.Printf("[Scheduler] Started: daily export at %02d:%02d, check interval %v", es.Hour, es.Minute, es.CheckInterval)
}

// Stop stops the scheduler and waits for a running export to finish.
func (es *ExportScheduler) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		es.cancel()
		es.wg.Wait()
		es.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (es *ExportScheduler) run() {
	defer es.wg.Done()

	es.checkAndExport(es.ctx)

	for {
		select {
		case <-es.ticker.C:
			es.checkAndExport(es.ctx)
		case <-es.ctx.Done():
			return
		}
	}
}

// checkAndExport fires once per date after the export time. Reports
// whether an export ran.
func (es *ExportScheduler) checkAndExport(ctx context.Context) bool {
	es.runMu.Lock()
	defer es.runMu.Unlock()

	now := es.now()
	today := attendance.DateOf(now)
	due := attendance.NewClockTime(es.Hour, es.Minute, 0)

	if es.lastRun == today || attendance.ClockOf(now).Before(due) {
		return false
	}

	if es.export(ctx) {
		es.lastRun = today
	}
	return true
}

// export hands one snapshot to every exporter. Reports whether all succeeded.
func (es *ExportScheduler) export(ctx context.Context) bool {
	snap := es.Store.Snapshot()
	ok := true
	for _, e := range es.Exporters {
		if err := e.Export(ctx, snap); err != nil {
			log.Printf("[Scheduler] %s export failed: %v", e.Name(), err)
			ok = false
			continue
		}
		log.Printf("[Scheduler] %s export written", e.Name())
	}
	return ok
}

// RunNow exports immediately regardless of the time of day.
func (es *ExportScheduler) RunNow(ctx context.Context) bool {
	es.runMu.Lock()
	defer es.runMu.Unlock()
	return es.export(ctx)
}

// LastRun returns the date of the last successful scheduled export.
func (es *ExportScheduler) LastRun() attendance.Date {
	es.runMu.Lock()
	defer es.runMu.Unlock()
	return es.lastRun
}

// GetNextRunTime returns when the next scheduled export is due. A time in
// the past means it is overdue and fires on the next tick.
func (es *ExportScheduler) GetNextRunTime() time.Time {
	es.runMu.Lock()
	defer es.runMu.Unlock()

	now := es.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), es.Hour, es.Minute, 0, 0, now.Location())
	if es.lastRun == attendance.DateOf(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (es *ExportScheduler) now() time.Time {
	if es.Now == nil {
		return time.Now()
	}
	return es.Now()
}
