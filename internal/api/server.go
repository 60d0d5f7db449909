package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  Config
}

// NewServer creates a new API server.
func NewServer(cfg Config, deps Deps) *Server {
	handler := NewHandler(cfg, deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware(cfg.Server.CORSOrigins)) // CORS for browser clients
	router.Use(RecoverMiddleware)                      // Recover from panics
	router.Use(TracingMiddleware)                      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)                      // Request logging
	router.Use(middleware.RealIP)                      // Extract real IP
	router.Use(middleware.Compress(5))                 // Gzip compression

	// Health endpoints (no session required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (session required)
	router.Route("/", func(r chi.Router) {
		r.Use(SessionMiddleware)

		// Scoring grid
		r.Get("/criteria", handler.Criteria)

		// Evaluation
		r.Post("/evaluate", handler.Evaluate)
		r.Post("/batch", handler.Batch)

		// Session history
		r.Get("/history", handler.ListHistory)
		r.Delete("/history", handler.ClearHistory)
		r.Get("/evaluations/{id}", handler.GetEvaluation)
		r.Get("/evaluations/{id}/export", handler.ExportEvaluation)

		// Screening rules
		r.Get("/screens", handler.ListScreens)
		r.Post("/screens", handler.CreateScreen)
		r.Post("/screens/reload", handler.ReloadScreens)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
