package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/spotter/internal/config"
	"github.com/claude/spotter/internal/ingest/alpha"
	"github.com/claude/spotter/internal/metrics"
	"github.com/claude/spotter/internal/storage"
	"github.com/claude/spotter/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	gw       storage.Gateway
	alpha    *alpha.Provider
	metrics  *metrics.Metrics
	training config.TrainingConfig
	log      *slog.Logger
	apiKey   string
	now      func() time.Time
	router   chi.Router

	// mu serialises gateway mutations so one handler's pending changes are
	// never saved or rolled back by another.
	mu      sync.Mutex
	workout *workout.Machine
}

// New creates a new Server with all routes configured.
func New(gw storage.Gateway, training config.TrainingConfig, alphaProvider *alpha.Provider, m *metrics.Metrics, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		gw:       gw,
		alpha:    alphaProvider,
		metrics:  m,
		training: training,
		log:      log,
		apiKey:   apiKey,
		now:      time.Now,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(Instrument(s.metrics))

	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/today", s.handleToday)

		r.Get("/exercises", s.handleListExercises)
		r.Post("/exercises", s.handleCreateExercise)
		r.Delete("/exercises/{id}", s.handleDeleteExercise)

		r.Get("/plans", s.handleListPlans)
		r.Post("/plans", s.handleCreatePlan)
		r.Post("/plans/{id}/activate", s.handleActivatePlan)
		r.Delete("/plans/{id}", s.handleDeletePlan)

		r.Route("/workout", func(r chi.Router) {
			r.Post("/", s.handleStartWorkout)
			r.Get("/", s.handleGetWorkout)
			r.Delete("/", s.handleDiscardWorkout)
			r.Post("/sets", s.handleLogSet)
			r.Post("/stepper", s.handleAdjustStepper)
			r.Post("/exercises", s.handleAddExercise)
			r.Post("/next", s.handleNextExercise)
			r.Post("/previous", s.handlePreviousExercise)
			r.Post("/finish", s.handleFinishWorkout)
		})

		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Post("/sessions/{id}/complete", s.handleCompleteSession)
		r.Get("/pain-tags", s.handlePainTags)

		r.Get("/trends/weekly-volume", s.handleWeeklyVolume)
		r.Get("/trends/consistency", s.handleConsistency)
		r.Get("/trends/e1rm", s.handleE1RM)

		// Import endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/import/alpha", s.handleAlphaImport)
		})
	})
}

// Locker guards the gateway. In-process readers outside the HTTP handlers
// must hold it while touching the object graph.
func (s *Server) Locker() sync.Locker {
	return &s.mu
}

// SetMCP mounts an MCP transport handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
}
