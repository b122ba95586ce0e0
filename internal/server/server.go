package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/gymio/internal/ingest/csvplan"
	"github.com/claude/gymio/internal/models"
	"github.com/claude/gymio/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Store is the persistence the HTTP handlers need.
type Store interface {
	Ping(ctx context.Context) error
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	LatestWeek(ctx context.Context, userID int) (*models.WorkoutWeek, error)
	ReplaceWeek(ctx context.Context, userID int, week *models.WorkoutWeek) (*storage.WeekStats, error)
	GetOrCreateSession(ctx context.Context, userID int, date string) (*models.Session, error)
	SessionPerformances(ctx context.Context, sessionID uuid.UUID) (models.PerformanceMap, error)
	UpdateSetPerformance(ctx context.Context, userID int, upd models.SetUpdate) (*models.SetPerformanceRecord, error)
	CountCompletedSets(ctx context.Context, userID int, from, to string) (int, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Options configure a Server. Zero values fall back to dev defaults.
type Options struct {
	APIKey string
	// PlanCSV seeds a user's first week when they have none.
	PlanCSV  string
	Location *time.Location
	// Identity resolves the caller; DevIdentity("local") when nil.
	Identity func(http.Handler) http.Handler
	OIDC     *OIDCAuth
	Registry *prometheus.Registry
	Now      func() time.Time
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	plans    *csvplan.Provider
	log      *slog.Logger
	apiKey   string
	planCSV  string
	loc      *time.Location
	now      func() time.Time
	identity func(http.Handler) http.Handler
	oidc     *OIDCAuth
	metrics  *Metrics
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db Store, opts Options, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		plans:    csvplan.NewProvider(db, log),
		log:      log,
		apiKey:   opts.APIKey,
		planCSV:  opts.PlanCSV,
		loc:      opts.Location,
		now:      opts.Now,
		identity: opts.Identity,
		oidc:     opts.OIDC,
		router:   chi.NewRouter(),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.identity == nil {
		s.identity = DevIdentity("local")
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics(reg)
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(s.metrics.Middleware)
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
		r.Post("/logout", s.handleLogout)
	})

	// Plan upload (API key required)
	s.router.Route("/api/v1/plan", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/import", s.handlePlanImport)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)
		r.Use(RequireUser(s.db, s.log))
		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/week", s.handleWeek)
		r.Get("/api/v1/session/today", s.handleToday)
		r.Post("/api/v1/session/update", s.handleUpdateSet)
		r.Get("/api/v1/progress", s.handleProgress)
		r.Get("/api/v1/imports", s.handleImportLogs)
	})
}

// today returns the current calendar date in the configured zone.
func (s *Server) today() string {
	return models.FormatDate(s.now().In(s.loc))
}
