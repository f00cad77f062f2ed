/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions for the
  attendance console. This is the wiring layer between URLs and handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/scans/*       Manual scans and the scan log
  /api/workers/*     Worker records
  /api/attendance    Day board
  /api/export/*      JSON, workbook and archive exports
  /api/import/*      JSON import
  /api/scanner/*     Badge reader on/off switch

SECURITY NOTE:
  No authentication middleware. Bind to a trusted network only.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured. An empty
// allowedOrigins falls back to the local dashboard origins.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/scans", func(r chi.Router) {
			r.Get("/", h.ListScans)
			r.Post("/", h.SubmitScan)
		})

		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.ListWorkers)
			r.Get("/{id}", h.GetWorker)
		})

		r.Get("/attendance", h.GetAttendance)

		r.Route("/export", func(r chi.Router) {
			r.Get("/json", h.ExportJSON)
			r.Get("/xlsx", h.ExportWorkbook)
			r.Post("/archive", h.ExportArchive)
			r.Post("/daily", h.ExportDaily)
		})

		r.Post("/import/json", h.ImportJSON)

		r.Route("/scanner", func(r chi.Router) {
			r.Get("/", h.ScannerStatus)
			r.Post("/start", h.StartScanner)
			r.Post("/stop", h.StopScanner)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Attendance Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Attendance Engine API</h1>
<ul>
<li><a href="/api/attendance">/api/attendance</a> - Today's board</li>
<li><a href="/api/workers">/api/workers</a> - Workers</li>
<li><a href="/api/scanner">/api/scanner</a> - Scanner status</li>
<li><a href="/api/export/xlsx">/api/export/xlsx</a> - Daily workbook</li>
</ul>
</body>
</html>`))
	})

	return r
}
