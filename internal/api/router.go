package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mw "github.com/storyloom/server/internal/middleware"
	"github.com/storyloom/server/internal/store"
)

// Server handles HTTP requests
type Server struct {
	router      chi.Router
	store       *store.Store
	sessions    map[string]*previewSession
	sessionsMu  sync.RWMutex
	rateLimiter *mw.RateLimiter
	authSecret  string
}

// Config tunes the API server.
type Config struct {
	// AuthSecret enables JWT auth on mutating endpoints when non-empty.
	AuthSecret string
	// RateLimit is the per-IP requests-per-second budget.
	RateLimit float64
}

// NewServer creates a new API server
func NewServer(st *store.Store, cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		store:       st,
		sessions:    make(map[string]*previewSession),
		rateLimiter: mw.NewRateLimiter(cfg.RateLimit),
		authSecret:  cfg.AuthSecret,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(mw.SecurityHeadersMiddleware)
	s.router.Use(mw.MaxBodySizeMiddleware(4 * 1024 * 1024)) // 4MB max

	// Read endpoints
	s.router.Group(func(r chi.Router) {
		r.Get("/api/graphs", s.listGraphs)
		r.Get("/api/graphs/{id}", s.getGraph)
		r.Get("/api/graphs/{id}/validate", s.validateGraph)
		r.Get("/api/graphs/{id}/script", s.exportScript)
	})

	// Mutating endpoints (auth required when a secret is configured)
	s.router.Group(func(r chi.Router) {
		if s.authSecret != "" {
			r.Use(mw.AuthMiddleware(s.authSecret))
		}
		r.Post("/api/graphs", s.createGraph)
		r.Patch("/api/graphs/{id}", s.updateGraph)
		r.Delete("/api/graphs/{id}", s.deleteGraph)
		r.Post("/api/graphs/import", s.importScript)
	})

	// Playback surfaces
	s.router.Post("/api/compositions", s.buildComposition)
	s.router.Post("/api/sessions", s.createSession)
	s.router.Get("/api/sessions/{id}", s.getSession)
	s.router.Post("/api/sessions/{id}/advance", s.advanceSession)
	s.router.Post("/api/sessions/{id}/choice", s.selectChoice)
	s.router.Delete("/api/sessions/{id}", s.deleteSession)
	s.router.Get("/api/sessions/{id}/events", s.sessionEvents)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (sanitized)
func writeError(w http.ResponseWriter, status int, message string) {
	if status >= 500 {
		message = "Internal server error"
	}
	writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}
