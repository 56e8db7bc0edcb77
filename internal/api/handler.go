package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CalendarExporter renders the calendar as an iCalendar document
type CalendarExporter interface {
	ExportICS(ctx context.Context) (string, error)
}

// Route mounts extra handlers, e.g. the chat webhooks
type Route func(mux *http.ServeMux)

// Server provides the HTTP surface: health, the ICS feed and chat webhooks
type Server struct {
	exporter CalendarExporter
	routes   []Route
	started  time.Time

	server *http.Server
	addr   string
}

// NewServer creates a new API server
func NewServer(exporter CalendarExporter, addr string, routes ...Route) *Server {
	s := &Server{
		exporter: exporter,
		routes:   routes,
		started:  time.Now(),
		addr:     addr,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the request multiplexer
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/calendar.ics", s.handleCalendar)

	for _, route := range s.routes {
		route(mux)
	}
	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	fmt.Printf("[API] Starting HTTP server on %s\n", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	feed, err := s.exporter.ExportICS(r.Context())
	if err != nil {
		fmt.Printf("[API] ICS export failed: %v\n", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write([]byte(feed))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
