// Package service scores and persists assessments, records health signals,
// and runs correlation passes over consistent storage snapshots.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/couchcryptid/healthmap-risk-service/internal/observability"
)

// AssessmentStore persists assessments. Implementations assign ids on save
// and report missing records with domain.ErrNotFound.
type AssessmentStore interface {
	ListAssessments(ctx context.Context) ([]domain.Assessment, error)
	GetAssessment(ctx context.Context, id string) (domain.Assessment, error)
	SaveAssessment(ctx context.Context, a domain.Assessment) (domain.Assessment, error)
	// UpdateAssessment runs fn on the stored record and persists its result.
	// Concurrent updates of the same id are serialized.
	UpdateAssessment(ctx context.Context, id string, fn func(domain.Assessment) (domain.Assessment, error)) (domain.Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error
	ListAssessmentsByRisk(ctx context.Context) ([]domain.Assessment, error)
	CountAssessmentsByPriority(ctx context.Context, p domain.Priority) (int, error)
	ListRecentAssessments(ctx context.Context, limit int) ([]domain.Assessment, error)
	ListHighRiskAssessments(ctx context.Context, minRisk int) ([]domain.Assessment, error)
}

// SignalStore persists health signals.
type SignalStore interface {
	ListSignals(ctx context.Context) ([]domain.HealthSignal, error)
	GetSignal(ctx context.Context, id string) (domain.HealthSignal, error)
	SaveSignal(ctx context.Context, s domain.HealthSignal) (domain.HealthSignal, error)
	DeleteSignal(ctx context.Context, id string) error
	SignalsByArea(ctx context.Context, areaID string) ([]domain.HealthSignal, error)
	SignalsSince(ctx context.Context, since time.Time) ([]domain.HealthSignal, error)
	SignalsBetween(ctx context.Context, from, to time.Time) ([]domain.HealthSignal, error)
	AreasWithElevatedSignals(ctx context.Context) ([]string, error)
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Defaults for list endpoints.
const (
	DefaultRecentLimit      = 10
	DefaultRecentSignalDays = 7
)

// Service is the entry point for every scoring, signal, and correlation operation.
type Service struct {
	assessments AssessmentStore
	signals     SignalStore
	publisher   EventPublisher
	opts        domain.CorrelationOptions
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Service. A nil publisher disables event publishing.
func New(assessments AssessmentStore, signals SignalStore, publisher EventPublisher, opts domain.CorrelationOptions, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Service{
		assessments: assessments,
		signals:     signals,
		publisher:   publisher,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness pings the assessment store when it supports it.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if p, ok := s.assessments.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("store not reachable: %w", err)
		}
	}
	return nil
}

// Correlate analyzes one snapshot of all assessments and the health signals
// inside the correlation window.
func (s *Service) Correlate(ctx context.Context) (domain.Correlation, error) {
	start := time.Now()
	now := domain.Now()

	assessments, err := s.assessments.ListAssessments(ctx)
	if err != nil {
		return domain.Correlation{}, fmt.Errorf("list assessments: %w", err)
	}
	signals, err := s.signals.SignalsSince(ctx, domain.WindowStart(now, s.opts.Window))
	if err != nil {
		return domain.Correlation{}, fmt.Errorf("list recent signals: %w", err)
	}

	result := domain.Analyze(assessments, signals, now, s.opts)

	s.metrics.CorrelationRuns.Inc()
	s.metrics.CorrelationDuration.Observe(time.Since(start).Seconds())
	s.recordAreaLevels(result)
	s.logger.Debug("correlation complete",
		"assessments", len(assessments),
		"signals", len(signals),
		"areas", result.OverallStats.TotalAreasAnalyzed,
		"urgent_areas", result.OverallStats.UrgentAreas,
	)
	return result, nil
}

func (s *Service) recordAreaLevels(c domain.Correlation) {
	counts := make(map[domain.RiskLevel]int, len(domain.RiskLevels))
	for _, a := range c.AreaCorrelations {
		counts[a.RiskLevel]++
	}
	for _, level := range domain.RiskLevels {
		s.metrics.AreasByRiskLevel.WithLabelValues(string(level)).Set(float64(counts[level]))
	}
}

func (s *Service) publish(ctx context.Context, events ...domain.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("publish events failed", "error", err, "count", len(events), "event_type", events[0].Type)
		return
	}
	for _, e := range events {
		s.metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...domain.Event) error { return nil }
