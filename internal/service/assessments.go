package service

import (
	"context"
	"fmt"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
)

// ScoreAndPersist validates and scores a new assessment, then saves it.
func (s *Service) ScoreAndPersist(ctx context.Context, req domain.AssessmentRequest) (domain.Assessment, error) {
	a, err := domain.NewAssessment(req)
	if err != nil {
		return domain.Assessment{}, err
	}

	saved, err := s.assessments.SaveAssessment(ctx, a)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("save assessment: %w", err)
	}

	s.scored(ctx, saved, "assessment created")
	return saved, nil
}

// RescoreAndPersist applies a partial update to a stored assessment and
// rescores it inside the store's per-record update.
func (s *Service) RescoreAndPersist(ctx context.Context, id string, req domain.AssessmentRequest) (domain.Assessment, error) {
	updated, err := s.assessments.UpdateAssessment(ctx, id, func(current domain.Assessment) (domain.Assessment, error) {
		return domain.ApplyUpdate(current, req)
	})
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("update assessment: %w", err)
	}

	s.scored(ctx, updated, "assessment rescored")
	return updated, nil
}

func (s *Service) scored(ctx context.Context, a domain.Assessment, msg string) {
	s.metrics.AssessmentsScored.WithLabelValues(string(a.Priority)).Inc()
	s.logger.Info(msg,
		"assessment_id", a.ID,
		"area_id", a.AreaID(),
		"overall_risk", a.OverallRisk,
		"priority", a.Priority,
	)
	s.publish(ctx, domain.NewAssessmentScoredEvent(a))
}

// Assessment returns one assessment by id.
func (s *Service) Assessment(ctx context.Context, id string) (domain.Assessment, error) {
	a, err := s.assessments.GetAssessment(ctx, id)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

// Assessments returns every stored assessment.
func (s *Service) Assessments(ctx context.Context) ([]domain.Assessment, error) {
	list, err := s.assessments.ListAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return list, nil
}

// DeleteAssessment removes an assessment. Missing ids report domain.ErrNotFound.
func (s *Service) DeleteAssessment(ctx context.Context, id string) error {
	if err := s.assessments.DeleteAssessment(ctx, id); err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	s.logger.Info("assessment deleted", "assessment_id", id)
	return nil
}

// PrioritizedAssessments returns assessments ordered by overall risk, highest first.
func (s *Service) PrioritizedAssessments(ctx context.Context) ([]domain.Assessment, error) {
	list, err := s.assessments.ListAssessmentsByRisk(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assessments by risk: %w", err)
	}
	return list, nil
}

// RecentAssessments returns the most recently created assessments.
func (s *Service) RecentAssessments(ctx context.Context) ([]domain.Assessment, error) {
	list, err := s.assessments.ListRecentAssessments(ctx, DefaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent assessments: %w", err)
	}
	return list, nil
}

// HighRiskAssessments returns assessments with overall risk of at least minRisk.
func (s *Service) HighRiskAssessments(ctx context.Context, minRisk int) ([]domain.Assessment, error) {
	if minRisk < 0 || minRisk > 100 {
		return nil, domain.ValidationError("min", "must be between 0 and 100")
	}
	list, err := s.assessments.ListHighRiskAssessments(ctx, minRisk)
	if err != nil {
		return nil, fmt.Errorf("list high-risk assessments: %w", err)
	}
	return list, nil
}

// AssessmentStats summarizes one snapshot of all assessments.
func (s *Service) AssessmentStats(ctx context.Context) (domain.AssessmentStats, error) {
	list, err := s.assessments.ListAssessments(ctx)
	if err != nil {
		return domain.AssessmentStats{}, fmt.Errorf("list assessments: %w", err)
	}
	return domain.SummarizeAssessments(list), nil
}

// RiskDistribution counts stored assessments per priority tier.
func (s *Service) RiskDistribution(ctx context.Context) (map[domain.Priority]int, error) {
	dist := make(map[domain.Priority]int, len(domain.Priorities))
	for _, p := range domain.Priorities {
		n, err := s.assessments.CountAssessmentsByPriority(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("count %s assessments: %w", p, err)
		}
		dist[p] = n
	}
	return dist, nil
}
