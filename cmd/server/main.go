/*
main.go - Application entry point

PURPOSE:
  Starts the attendance engine: badge reader ingestion, the daily export
  scheduler and the HTTP console. Handles configuration, dependency
  injection and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (YAML, .env, ATTENDANCE_* env, then flags)
  2. Open SQLite and reload the saved attendance state
  3. Wire the ingestor (scan log + JSON autosave + database save)
  4. Start reader, scheduler and HTTP server under one errgroup

COMMAND-LINE FLAGS:
  -config    YAML config path (default: attendance.yaml, optional)
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: attendance.db)
             Use ":memory:" for an in-memory database
  -save-dir  Directory for JSON and workbook exports (default: ./data)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reader and the scheduler
  2. Wait for active requests to complete (30s timeout)
  3. Append the final state to the archive workbook and save it to SQLite
  4. Close database connection

EXAMPLES:
  # Read badges from a keyboard-mode scanner on stdin
  ./server -save-dir=/srv/attendance

  # HTTP only, no local reader
  ATTENDANCE_SOURCE=none ./server -port=3000

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - ingest/ingest.go: Scan pipeline
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/export"
	"github.com/warp/attendance-engine/ingest"
	"github.com/warp/attendance-engine/store/sqlite"
)

// The database doubles as an autosave target next to the JSON file.
var _ export.Exporter = (*sqlite.Store)(nil)

func main() {
	// Flags
	configPath := flag.String("config", "attendance.yaml", "YAML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	saveDir := flag.String("save-dir", "", "export directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "db":
			cfg.DBPath = *dbPath
		case "save-dir":
			cfg.SaveDir = *saveDir
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}

func run(cfg *config.Config) error {
	shift, err := cfg.AttendanceShift()
	if err != nil {
		return err
	}
	hour, minute, err := cfg.Autosave()
	if err != nil {
		return err
	}

	// Initialize store
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	saved, err := db.LoadSnapshot(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load saved attendance: %w", err)
	}
	store := attendance.NewStoreFromSnapshot(shift, saved)
	log.Printf("Loaded %d workers from %s", store.Len(), cfg.DBPath)

	// Exports
	retry := cfg.RetryPolicy()
	jsonFile := export.NewJSONFile(cfg.SaveDir, retry)
	daily := export.NewDailyFile(cfg.SaveDir, retry)
	archive := export.NewArchive(cfg.SaveDir, retry)

	// Ingestion
	in := ingest.New(store, attendance.NewThrottle(time.Duration(cfg.Throttle)),
		ingest.LogScans(db),
		ingest.ExportOnChange(store, jsonFile, db),
	)

	scheduler := api.NewExportScheduler(store, hour, minute, daily)
	scheduler.CheckInterval = time.Duration(cfg.CheckInterval)

	handler := api.NewHandler(store, db, in, archive)
	handler.Scheduler = scheduler
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Source == "stdin" {
		in.Start()
		g.Go(func() error {
			// EOF on stdin ends the reader only; the console keeps serving.
			return in.Run(gctx, ingest.NewLineSource(os.Stdin))
		})
	}

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	in.Stop()

	// Final save: archive workbook and database, both from one snapshot.
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	final := store.Snapshot()
	if err := archive.Export(saveCtx, final); err != nil {
		log.Printf("[Export] Archive not written: %v", err)
	} else {
		log.Printf("[Export] Archive written to %s", archive.Path)
	}
	if err := db.SaveSnapshot(saveCtx, final); err != nil {
		log.Printf("[Export] Database save failed: %v", err)
	}

	return runErr
}
