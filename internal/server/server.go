package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/metrics"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Options tune optional server behavior.
type Options struct {
	Version string
	Metrics bool // expose /metrics and record request metrics
	Log     zerolog.Logger
}

// Server is the revise HTTP API server.
type Server struct {
	svc     *agenda.Service
	health  HealthChecker
	router  chi.Router
	log     zerolog.Logger
	version string
	metrics bool
	started time.Time
	now     func() time.Time
}

// New creates a new Server around the agenda service.
func New(svc *agenda.Service, health HealthChecker, opts Options) *Server {
	s := &Server{
		svc:     svc,
		health:  health,
		log:     opts.Log,
		version: opts.Version,
		metrics: opts.Metrics,
		started: time.Now(),
		now:     time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics {
		r.Use(metrics.Middleware())
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/users", s.handleUsers)
		r.Post("/schedule", s.handleSchedule)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/agenda", s.handleAgenda)
			r.Delete("/agenda", s.handleClear)
			r.Delete("/agenda/items", s.handleRemove)
			r.Get("/agenda.ics", s.handleExportICS)
			r.Post("/topics", s.handleAddTopic)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeOK := s.health == nil || s.health.Healthy(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"store":   storeOK,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs one line per request through zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
