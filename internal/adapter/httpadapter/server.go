// Package httpadapter exposes the risk service over a JSON REST API plus
// health, readiness, and metrics endpoints.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Service is the subset of service.Service the handlers call.
type Service interface {
	ScoreAndPersist(ctx context.Context, req domain.AssessmentRequest) (domain.Assessment, error)
	RescoreAndPersist(ctx context.Context, id string, req domain.AssessmentRequest) (domain.Assessment, error)
	Assessment(ctx context.Context, id string) (domain.Assessment, error)
	Assessments(ctx context.Context) ([]domain.Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error
	PrioritizedAssessments(ctx context.Context) ([]domain.Assessment, error)
	RecentAssessments(ctx context.Context) ([]domain.Assessment, error)
	HighRiskAssessments(ctx context.Context, minRisk int) ([]domain.Assessment, error)
	AssessmentStats(ctx context.Context) (domain.AssessmentStats, error)
	RiskDistribution(ctx context.Context) (map[domain.Priority]int, error)

	RecordSignal(ctx context.Context, req domain.HealthSignalRequest) (domain.HealthSignal, error)
	Signal(ctx context.Context, id string) (domain.HealthSignal, error)
	Signals(ctx context.Context) ([]domain.HealthSignal, error)
	RecentSignals(ctx context.Context, days int) ([]domain.HealthSignal, error)
	SignalsBetween(ctx context.Context, from, to time.Time) ([]domain.HealthSignal, error)
	SignalsByArea(ctx context.Context, areaID string) ([]domain.HealthSignal, error)
	ElevatedAreas(ctx context.Context) ([]string, error)
	DeleteSignal(ctx context.Context, id string) error
	SignalStats(ctx context.Context) (domain.SignalStats, error)

	Correlate(ctx context.Context) (domain.Correlation, error)
}

// Options tune the API surface.
type Options struct {
	AllowedOrigins []string
	// CorrelationCacheTTL caches the correlation snapshot between writes. Zero disables.
	CorrelationCacheTTL time.Duration
}

// Server exposes the REST API along with /healthz, /readyz, and /metrics.
type Server struct {
	httpServer *http.Server
	svc        Service
	cache      *correlationCache
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API mounted under /api/v1.
func NewServer(addr string, svc Service, ready sharedobs.ReadinessChecker, opts Options, logger *slog.Logger) *Server {
	r := mux.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	})

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      corsHandler.Handler(r),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		cache:  newCorrelationCache(opts.CorrelationCacheTTL),
		logger: logger,
	}

	r.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/readyz", sharedobs.ReadinessHandler(ready)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.registerRoutes(r.PathPrefix("/api/v1").Subrouter())
	return s
}

func (s *Server) registerRoutes(api *mux.Router) {
	// Static paths are registered before /{id} so they are not captured as ids.
	a := api.PathPrefix("/assessments").Subrouter()
	a.HandleFunc("", s.createAssessment).Methods(http.MethodPost)
	a.HandleFunc("", s.listAssessments).Methods(http.MethodGet)
	a.HandleFunc("/priorities", s.prioritizedAssessments).Methods(http.MethodGet)
	a.HandleFunc("/recent", s.recentAssessments).Methods(http.MethodGet)
	a.HandleFunc("/high-risk", s.highRiskAssessments).Methods(http.MethodGet)
	a.HandleFunc("/geojson", s.assessmentsGeoJSON).Methods(http.MethodGet)
	a.HandleFunc("/{id}", s.getAssessment).Methods(http.MethodGet)
	a.HandleFunc("/{id}", s.updateAssessment).Methods(http.MethodPut)
	a.HandleFunc("/{id}", s.deleteAssessment).Methods(http.MethodDelete)

	hs := api.PathPrefix("/health-signals").Subrouter()
	hs.HandleFunc("", s.createSignal).Methods(http.MethodPost)
	hs.HandleFunc("", s.listSignals).Methods(http.MethodGet)
	hs.HandleFunc("/recent", s.recentSignals).Methods(http.MethodGet)
	hs.HandleFunc("/range", s.signalsBetween).Methods(http.MethodGet)
	hs.HandleFunc("/stats", s.signalStats).Methods(http.MethodGet)
	hs.HandleFunc("/elevated-areas", s.elevatedAreas).Methods(http.MethodGet)
	hs.HandleFunc("/area/{areaId}", s.signalsByArea).Methods(http.MethodGet)
	hs.HandleFunc("/{id}", s.getSignal).Methods(http.MethodGet)
	hs.HandleFunc("/{id}", s.deleteSignal).Methods(http.MethodDelete)

	api.HandleFunc("/stats", s.dashboardStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/risk-distribution", s.riskDistribution).Methods(http.MethodGet)
	api.HandleFunc("/stats/correlations", s.correlations).Methods(http.MethodGet)
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
