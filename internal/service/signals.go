package service

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
)

// RecordSignal validates and stores a new health signal.
func (s *Service) RecordSignal(ctx context.Context, req domain.HealthSignalRequest) (domain.HealthSignal, error) {
	sig, err := domain.NewHealthSignal(req)
	if err != nil {
		return domain.HealthSignal{}, err
	}

	saved, err := s.signals.SaveSignal(ctx, sig)
	if err != nil {
		return domain.HealthSignal{}, fmt.Errorf("save health signal: %w", err)
	}

	s.metrics.SignalsRecorded.WithLabelValues(string(saved.SignalLevel)).Inc()
	s.logger.Info("health signal recorded",
		"signal_id", saved.ID,
		"area_id", saved.AreaID,
		"signal_type", saved.SignalType,
		"signal_level", saved.SignalLevel,
	)
	return saved, nil
}

// Signal returns one health signal by id.
func (s *Service) Signal(ctx context.Context, id string) (domain.HealthSignal, error) {
	sig, err := s.signals.GetSignal(ctx, id)
	if err != nil {
		return domain.HealthSignal{}, fmt.Errorf("get health signal: %w", err)
	}
	return sig, nil
}

// Signals returns every stored health signal.
func (s *Service) Signals(ctx context.Context) ([]domain.HealthSignal, error) {
	list, err := s.signals.ListSignals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list health signals: %w", err)
	}
	return list, nil
}

// RecentSignals returns signals dated within the last days days, today included.
func (s *Service) RecentSignals(ctx context.Context, days int) ([]domain.HealthSignal, error) {
	if days < 0 {
		return nil, domain.ValidationError("days", "must not be negative")
	}
	since := domain.Today().AddDate(0, 0, -days)
	list, err := s.signals.SignalsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list recent health signals: %w", err)
	}
	return list, nil
}

// SignalsBetween returns signals dated from the day of from to the day of to, inclusive.
func (s *Service) SignalsBetween(ctx context.Context, from, to time.Time) ([]domain.HealthSignal, error) {
	from, to = domain.DayOf(from), domain.DayOf(to)
	if to.Before(from) {
		return nil, domain.ValidationError("to", "must not be before from")
	}
	list, err := s.signals.SignalsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list health signals between: %w", err)
	}
	return list, nil
}

// SignalsByArea returns an area's signals, newest signal date first.
func (s *Service) SignalsByArea(ctx context.Context, areaID string) ([]domain.HealthSignal, error) {
	list, err := s.signals.SignalsByArea(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("list health signals for area: %w", err)
	}
	return list, nil
}

// ElevatedAreas returns the area ids with at least one elevated signal on record.
func (s *Service) ElevatedAreas(ctx context.Context) ([]string, error) {
	ids, err := s.signals.AreasWithElevatedSignals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list elevated areas: %w", err)
	}
	return ids, nil
}

// DeleteSignal removes a health signal. Missing ids report domain.ErrNotFound.
func (s *Service) DeleteSignal(ctx context.Context, id string) error {
	if err := s.signals.DeleteSignal(ctx, id); err != nil {
		return fmt.Errorf("delete health signal: %w", err)
	}
	s.logger.Info("health signal deleted", "signal_id", id)
	return nil
}

// SignalStats summarizes one snapshot of all health signals.
func (s *Service) SignalStats(ctx context.Context) (domain.SignalStats, error) {
	list, err := s.signals.ListSignals(ctx)
	if err != nil {
		return domain.SignalStats{}, fmt.Errorf("list health signals: %w", err)
	}
	return domain.SummarizeSignals(list), nil
}
