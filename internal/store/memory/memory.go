// Package memory is a process-local store for assessments and health signals.
// Lists preserve insertion order unless an operation states otherwise.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/google/uuid"
)

type record[T any] struct {
	seq uint64
	v   T
}

// Store keeps records in maps guarded by one mutex. Updates hold the write
// lock across read, derive, and write, so rescoring never sees a partially
// applied update.
type Store struct {
	mu          sync.RWMutex
	seq         uint64
	assessments map[string]record[domain.Assessment]
	signals     map[string]record[domain.HealthSignal]
	newID       func() string
}

// New returns an empty store that assigns random UUIDs.
func New() *Store {
	return &Store{
		assessments: make(map[string]record[domain.Assessment]),
		signals:     make(map[string]record[domain.HealthSignal]),
		newID:       uuid.NewString,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func sortedValues[T any](m map[string]record[T], keep func(T) bool) []T {
	recs := make([]record[T], 0, len(m))
	for _, r := range m {
		if keep == nil || keep(r.v) {
			recs = append(recs, r)
		}
	}
	slices.SortFunc(recs, func(a, b record[T]) int { return cmp.Compare(a.seq, b.seq) })

	out := make([]T, len(recs))
	for i, r := range recs {
		out[i] = r.v
	}
	return out
}

// --- assessments ---

func (s *Store) ListAssessments(_ context.Context) ([]domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.assessments, nil), nil
}

func (s *Store) GetAssessment(_ context.Context, id string) (domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.assessments[id]
	if !ok {
		return domain.Assessment{}, domain.NotFoundError("assessment", id)
	}
	return r.v, nil
}

// SaveAssessment inserts a, assigning an id when empty, or replaces the
// record with the same id.
func (s *Store) SaveAssessment(_ context.Context, a domain.Assessment) (domain.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.newID()
	}
	r, ok := s.assessments[a.ID]
	if !ok {
		r.seq = s.nextSeq()
	}
	r.v = a
	s.assessments[a.ID] = r
	return a, nil
}

func (s *Store) UpdateAssessment(_ context.Context, id string, fn func(domain.Assessment) (domain.Assessment, error)) (domain.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.assessments[id]
	if !ok {
		return domain.Assessment{}, domain.NotFoundError("assessment", id)
	}
	next, err := fn(r.v)
	if err != nil {
		return domain.Assessment{}, err
	}
	next.ID = id
	r.v = next
	s.assessments[id] = r
	return next, nil
}

func (s *Store) DeleteAssessment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assessments[id]; !ok {
		return domain.NotFoundError("assessment", id)
	}
	delete(s.assessments, id)
	return nil
}

// ListAssessmentsByRisk orders by overall risk descending; ties keep insertion order.
func (s *Store) ListAssessmentsByRisk(ctx context.Context) ([]domain.Assessment, error) {
	list, _ := s.ListAssessments(ctx)
	slices.SortStableFunc(list, func(a, b domain.Assessment) int { return cmp.Compare(b.OverallRisk, a.OverallRisk) })
	return list, nil
}

func (s *Store) CountAssessmentsByPriority(_ context.Context, p domain.Priority) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.assessments {
		if r.v.Priority == p {
			n++
		}
	}
	return n, nil
}

// ListRecentAssessments returns up to limit assessments, newest CreatedAt first.
func (s *Store) ListRecentAssessments(ctx context.Context, limit int) ([]domain.Assessment, error) {
	list, _ := s.ListAssessments(ctx)
	slices.Reverse(list)
	slices.SortStableFunc(list, func(a, b domain.Assessment) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit >= 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// ListHighRiskAssessments returns assessments with OverallRisk >= minRisk,
// highest first.
func (s *Store) ListHighRiskAssessments(_ context.Context, minRisk int) ([]domain.Assessment, error) {
	s.mu.RLock()
	list := sortedValues(s.assessments, func(a domain.Assessment) bool { return a.OverallRisk >= minRisk })
	s.mu.RUnlock()
	slices.SortStableFunc(list, func(a, b domain.Assessment) int { return cmp.Compare(b.OverallRisk, a.OverallRisk) })
	return list, nil
}

// --- health signals ---

func (s *Store) ListSignals(_ context.Context) ([]domain.HealthSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.signals, nil), nil
}

func (s *Store) GetSignal(_ context.Context, id string) (domain.HealthSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.signals[id]
	if !ok {
		return domain.HealthSignal{}, domain.NotFoundError("health signal", id)
	}
	return r.v, nil
}

func (s *Store) SaveSignal(_ context.Context, sig domain.HealthSignal) (domain.HealthSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig.ID == "" {
		sig.ID = s.newID()
	}
	r, ok := s.signals[sig.ID]
	if !ok {
		r.seq = s.nextSeq()
	}
	r.v = sig
	s.signals[sig.ID] = r
	return sig, nil
}

func (s *Store) DeleteSignal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.signals[id]; !ok {
		return domain.NotFoundError("health signal", id)
	}
	delete(s.signals, id)
	return nil
}

// SignalsByArea returns the signals of one area, newest SignalDate first.
func (s *Store) SignalsByArea(_ context.Context, areaID string) ([]domain.HealthSignal, error) {
	s.mu.RLock()
	list := sortedValues(s.signals, func(sig domain.HealthSignal) bool { return sig.AreaID == areaID })
	s.mu.RUnlock()
	slices.SortStableFunc(list, newestFirst)
	return list, nil
}

// SignalsSince returns signals dated on or after since, newest SignalDate
// first; equal dates keep insertion order.
func (s *Store) SignalsSince(_ context.Context, since time.Time) ([]domain.HealthSignal, error) {
	s.mu.RLock()
	list := sortedValues(s.signals, func(sig domain.HealthSignal) bool { return !sig.SignalDate.Before(since) })
	s.mu.RUnlock()
	slices.SortStableFunc(list, newestFirst)
	return list, nil
}

// SignalsBetween returns signals dated within [from, to], newest first.
func (s *Store) SignalsBetween(_ context.Context, from, to time.Time) ([]domain.HealthSignal, error) {
	s.mu.RLock()
	list := sortedValues(s.signals, func(sig domain.HealthSignal) bool {
		return !sig.SignalDate.Before(from) && !sig.SignalDate.After(to)
	})
	s.mu.RUnlock()
	slices.SortStableFunc(list, newestFirst)
	return list, nil
}

func newestFirst(a, b domain.HealthSignal) int { return b.SignalDate.Compare(a.SignalDate) }

// AreasWithElevatedSignals returns the sorted, distinct area ids with an
// elevated signal of any date.
func (s *Store) AreasWithElevatedSignals(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	ids := []string{}
	for _, r := range s.signals {
		if r.v.Elevated() && !seen[r.v.AreaID] {
			seen[r.v.AreaID] = true
			ids = append(ids, r.v.AreaID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
