// Package pipeline runs the scheduled correlation sweep that raises area alerts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/couchcryptid/healthmap-risk-service/internal/observability"
	"github.com/robfig/cron/v3"
)

// Correlator produces a ranked correlation snapshot.
type Correlator interface {
	Correlate(ctx context.Context) (domain.Correlation, error)
}

// Publisher writes events downstream.
type Publisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

// Sweeper runs a correlation pass on a cron schedule and publishes an alert
// for every area at or above the alert level.
type Sweeper struct {
	correlator Correlator
	publisher  Publisher
	schedule   string
	alertLevel domain.RiskLevel
	logger     *slog.Logger
	metrics    *observability.Metrics

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Sweeper. schedule is a standard five-field cron spec or a
// descriptor such as "@every 10m".
func New(c Correlator, p Publisher, schedule string, alertLevel domain.RiskLevel, logger *slog.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		correlator:     c,
		publisher:      p,
		schedule:       schedule,
		alertLevel:     alertLevel,
		logger:         logger,
		metrics:        metrics,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// Run schedules sweeps until the context is cancelled, then waits for a
// running sweep to finish.
func (s *Sweeper) Run(ctx context.Context) error {
	sched, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("parse sweep schedule: %w", err)
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}))

	s.logger.Info("sweep started", "schedule", s.schedule, "alert_level", s.alertLevel)
	s.metrics.SweepRunning.Set(1)
	defer s.metrics.SweepRunning.Set(0)

	c.Start()
	<-ctx.Done()
	s.logger.Info("sweep stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

// Sweep runs one correlation pass and publishes its alerts. It returns the
// number of alerts published.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	result, err := s.correlator.Correlate(ctx)
	if err != nil {
		return 0, fmt.Errorf("correlate: %w", err)
	}

	alerts := domain.AlertsAtOrAbove(result, s.alertLevel)
	s.logger.Info("sweep complete",
		"areas", result.OverallStats.TotalAreasAnalyzed,
		"urgent_areas", result.OverallStats.UrgentAreas,
		"high_risk_areas", result.OverallStats.HighRiskAreas,
		"alerts", len(alerts),
	)
	if len(alerts) == 0 {
		return 0, nil
	}

	if err := s.publishWithRetry(ctx, alerts); err != nil {
		return 0, err
	}
	return len(alerts), nil
}

// publishWithRetry retries with exponential backoff until maxAttempts is
// reached or the context ends.
func (s *Sweeper) publishWithRetry(ctx context.Context, events []domain.Event) error {
	backoff := s.initialBackoff
	for attempt := 1; ; attempt++ {
		err := s.publisher.Publish(ctx, events...)
		if err == nil {
			s.metrics.EventsPublished.WithLabelValues(string(domain.EventAreaAlert)).Add(float64(len(events)))
			return nil
		}
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("publish alerts failed", "error", err, "attempt", attempt, "alerts", len(events))

		if attempt >= s.maxAttempts {
			return fmt.Errorf("publish %d alerts after %d attempts: %w", len(events), attempt, err)
		}
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, s.maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
