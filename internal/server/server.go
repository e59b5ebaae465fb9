// Package server provides the HTTP server for the hipcheck exercise monitor.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/server/api"
	"github.com/ayusman/hipcheck/internal/store"
)

// Monitor is the live session the server exposes. *app.App satisfies it.
type Monitor interface {
	api.Session
	Subscribe(buffer int) (<-chan app.Observation, func())
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Monitor   Monitor
}

// Server represents the HTTP server for the hipcheck application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		exercises := api.NewExerciseHandler(s.config.Store, s.config.Monitor)
		s.mux.Handle("/api/exercises", exercises)
		s.mux.Handle("/api/exercises/", exercises)
	}

	if s.config.Monitor != nil {
		sessionHandler := api.NewSessionHandler(s.config.Monitor)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/reset", sessionHandler)
		s.mux.Handle("/api/session/stream", NewStreamHandler(s.config.Monitor))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Handler returns an *http.Server bound to addr, for callers that need
// graceful shutdown.
func (s *Server) Handler(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return s.Handler(addr).ListenAndServe()
}
