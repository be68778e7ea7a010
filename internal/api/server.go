// Package api implements a local mock of the blog generation service. It
// speaks the same wire protocol as the real pipeline, so the client can be
// developed and demoed without GPU-backed infrastructure.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/inkflow/inkflow/internal/core"
	"github.com/inkflow/inkflow/internal/history"
	"github.com/inkflow/inkflow/internal/logging"
)

// Server is the mock generation service.
type Server struct {
	router      chi.Router
	logger      *logging.Logger
	scenario    *Scenario
	stageDelay  time.Duration
	autoConfirm bool
	store       *history.SQLiteStore

	mu    sync.Mutex
	tasks map[string]*task
}

// task tracks one in-flight generation on the server side.
type task struct {
	id      string
	req     core.GenerationRequest
	confirm chan core.OutlineDecision
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithScenario overrides the scripted event sequence.
func WithScenario(sc *Scenario) ServerOption {
	return func(s *Server) {
		s.scenario = sc
	}
}

// WithStageDelay sets the pacing between scripted events.
func WithStageDelay(d time.Duration) ServerOption {
	return func(s *Server) {
		s.stageDelay = d
	}
}

// WithAutoConfirm makes the server continue past the outline checkpoint
// without waiting for a decision.
func WithAutoConfirm(auto bool) ServerOption {
	return func(s *Server) {
		s.autoConfirm = auto
	}
}

// WithHistoryStore exposes read endpoints over a history database.
func WithHistoryStore(store *history.SQLiteStore) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// NewServer creates a mock generation server.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		logger:     logging.NewNop(),
		scenario:   DefaultScenario(),
		stageDelay: 300 * time.Millisecond,
		tasks:      make(map[string]*task),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/blog", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Post("/outline/confirm", s.handleConfirm)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Get("/{recordID}", s.handleGetHistory)
			r.Delete("/{recordID}", s.handleDeleteHistory)
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// register adds a task to the in-flight set.
func (s *Server) register(t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.id] = t
}

// unregister removes a finished task.
func (s *Server) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// lookup finds an in-flight task.
func (s *Server) lookup(id string) (*task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}
