package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/couchcryptid/healthmap-risk-service/internal/observability"
	"github.com/couchcryptid/healthmap-risk-service/internal/service"
	"github.com/couchcryptid/healthmap-risk-service/internal/store/memory"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events ...domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

var errStoreDown = errors.New("store down")

// failingStore fails every call that reaches it.
type failingStore struct {
	service.AssessmentStore
	service.SignalStore
}

func (failingStore) ListAssessments(context.Context) ([]domain.Assessment, error) {
	return nil, errStoreDown
}

func (failingStore) SaveAssessment(context.Context, domain.Assessment) (domain.Assessment, error) {
	return domain.Assessment{}, errStoreDown
}

func (failingStore) CountAssessmentsByPriority(context.Context, domain.Priority) (int, error) {
	return 0, errStoreDown
}

func (failingStore) Ping(context.Context) error { return errStoreDown }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc       *service.Service
	store     *memory.Store
	publisher *mockPublisher
	metrics   *observability.Metrics
	clock     *clockwork.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(nil) })

	store := memory.New()
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	svc := service.New(store, store, pub, domain.DefaultCorrelationOptions(), discardLogger(), metrics)
	return fixture{svc: svc, store: store, publisher: pub, metrics: metrics, clock: fc}
}

func ptr[T any](v T) *T { return &v }

func debrisRequest() domain.AssessmentRequest {
	return domain.AssessmentRequest{
		Latitude:       ptr(40.7128),
		Longitude:      ptr(-74.006),
		SiteType:       ptr(domain.SiteDebris),
		BuildingAge:    ptr(domain.BuildingOld),
		OldMaterials:   ptr(true),
		DustPresent:    ptr(true),
		NearPopulation: ptr(true),
	}
}

func respiratorySignal(areaID string, date time.Time) domain.HealthSignalRequest {
	return domain.HealthSignalRequest{
		AreaID:      areaID,
		AreaName:    "Lower Manhattan",
		SignalDate:  date,
		SignalType:  domain.SignalRespiratory,
		SignalLevel: domain.LevelElevated,
		Source:      domain.SourceClinic,
		Latitude:    ptr(40.713),
		Longitude:   ptr(-74.006),
	}
}

// --- assessments ---

func TestScoreAndPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.ScoreAndPersist(ctx, debrisRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 62, a.OverallRisk)
	assert.Equal(t, domain.PriorityHigh, a.Priority)

	stored, err := f.svc.Assessment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, stored)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventAssessmentScored, f.publisher.events[0].Type)
	assert.Equal(t, a.ID, f.publisher.events[0].Key)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AssessmentsScored.WithLabelValues("HIGH")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues("assessment.scored")), 0)
}

func TestScoreAndPersist_ValidationSkipsStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := debrisRequest()
	req.SiteType = nil
	_, err := f.svc.ScoreAndPersist(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidation)

	list, _ := f.svc.Assessments(ctx)
	assert.Empty(t, list)
	assert.Empty(t, f.publisher.events)
}

func TestScoreAndPersist_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker unavailable")

	a, err := f.svc.ScoreAndPersist(context.Background(), debrisRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.PublishErrors), 0)
}

func TestRescoreAndPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.ScoreAndPersist(ctx, debrisRequest())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.RescoreAndPersist(ctx, created.ID, domain.AssessmentRequest{
		SewageVisible: ptr(true),
		StandingWater: ptr(true),
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, 100, updated.WaterRisk)
	assert.Equal(t, 94, updated.OverallRisk)
	assert.Equal(t, domain.PriorityCritical, updated.Priority)

	stored, _ := f.svc.Assessment(ctx, created.ID)
	assert.Equal(t, updated, stored)
	assert.Len(t, f.publisher.events, 2)
}

func TestRescoreAndPersist_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RescoreAndPersist(ctx, "missing", domain.AssessmentRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created, err := f.svc.ScoreAndPersist(ctx, debrisRequest())
	require.NoError(t, err)
	_, err = f.svc.RescoreAndPersist(ctx, created.ID, domain.AssessmentRequest{SiteType: ptr(domain.SiteType("LAVA"))})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, _ := f.svc.Assessment(ctx, created.ID)
	assert.Equal(t, domain.SiteDebris, stored.SiteType)
}

func TestDeleteAssessment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.ScoreAndPersist(ctx, debrisRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAssessment(ctx, a.ID))
	assert.ErrorIs(t, f.svc.DeleteAssessment(ctx, a.ID), domain.ErrNotFound)
	_, err = f.svc.Assessment(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssessmentListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low := domain.AssessmentRequest{Latitude: ptr(1.0), Longitude: ptr(1.0), SiteType: ptr(domain.SiteWater)}
	water := domain.AssessmentRequest{
		Latitude: ptr(2.0), Longitude: ptr(2.0), SiteType: ptr(domain.SiteWater),
		SewageVisible: ptr(true), StandingWater: ptr(true), DustPresent: ptr(true),
	}
	for _, req := range []domain.AssessmentRequest{low, debrisRequest(), water} {
		_, err := f.svc.ScoreAndPersist(ctx, req)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	risks := func(list []domain.Assessment) []int {
		var out []int
		for _, a := range list {
			out = append(out, a.OverallRisk)
		}
		return out
	}

	prioritized, err := f.svc.PrioritizedAssessments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{62, 44, 0}, risks(prioritized))

	recent, err := f.svc.RecentAssessments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{44, 62, 0}, risks(recent))

	high, err := f.svc.HighRiskAssessments(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, []int{62}, risks(high))

	_, err = f.svc.HighRiskAssessments(ctx, 101)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stats, err := f.svc.AssessmentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAssessments)
	assert.Equal(t, 35.3, stats.AverageOverallRisk)
	assert.Equal(t, 2, stats.SiteTypeDistribution[domain.SiteWater])

	dist, err := f.svc.RiskDistribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Priority]int{
		domain.PriorityCritical: 0,
		domain.PriorityHigh:     1,
		domain.PriorityMedium:   1,
		domain.PriorityLow:      1,
	}, dist)
}

// --- health signals ---

func TestRecordSignal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := respiratorySignal("AREA_4071_-7400", time.Time{})
	sig, err := f.svc.RecordSignal(ctx, req)
	require.NoError(t, err)

	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, domain.Today(), sig.SignalDate)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SignalsRecorded.WithLabelValues("ELEVATED")), 0)

	got, err := f.svc.Signal(ctx, sig.ID)
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	req.Source = "RUMOR"
	_, err = f.svc.RecordSignal(ctx, req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSignalQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := domain.Today()

	for _, offset := range []int{0, -7, -8, -40} {
		_, err := f.svc.RecordSignal(ctx, respiratorySignal("A", today.AddDate(0, 0, offset)))
		require.NoError(t, err)
	}
	normal := respiratorySignal("B", today)
	normal.SignalLevel = domain.LevelNormal
	_, err := f.svc.RecordSignal(ctx, normal)
	require.NoError(t, err)

	recent, err := f.svc.RecentSignals(ctx, service.DefaultRecentSignalDays)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	_, err = f.svc.RecentSignals(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	byArea, err := f.svc.SignalsByArea(ctx, "A")
	require.NoError(t, err)
	require.Len(t, byArea, 4)
	assert.Equal(t, today, byArea[0].SignalDate)
	assert.Equal(t, today.AddDate(0, 0, -40), byArea[3].SignalDate)

	between, err := f.svc.SignalsBetween(ctx, today.AddDate(0, 0, -8), today.AddDate(0, 0, -7).Add(13*time.Hour))
	require.NoError(t, err)
	assert.Len(t, between, 2)

	_, err = f.svc.SignalsBetween(ctx, today, today.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	areas, err := f.svc.ElevatedAreas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, areas)

	stats, err := f.svc.SignalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalSignals)
	assert.Equal(t, 4, stats.ElevatedSignals)
	assert.Equal(t, 5, stats.SignalsByType["Respiratory"])

	all, _ := f.svc.Signals(ctx)
	require.NoError(t, f.svc.DeleteSignal(ctx, all[0].ID))
	assert.ErrorIs(t, f.svc.DeleteSignal(ctx, all[0].ID), domain.ErrNotFound)
}

// --- correlation ---

func TestCorrelate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a critical and a low site share one grid cell
	critical := debrisRequest()
	critical.SewageVisible = ptr(true)
	critical.StandingWater = ptr(true) // overall 94
	low := debrisRequest()
	low.BuildingAge = ptr(domain.BuildingModern)
	low.OldMaterials = ptr(false) // asbestos 35, water 20, overall 29
	for _, req := range []domain.AssessmentRequest{critical, low} {
		_, err := f.svc.ScoreAndPersist(ctx, req)
		require.NoError(t, err)
	}
	_, err := f.svc.RecordSignal(ctx, respiratorySignal("AREA_4071_-7400", domain.Today()))
	require.NoError(t, err)
	_, err = f.svc.RecordSignal(ctx, respiratorySignal("AREA_4071_-7400", domain.Today().AddDate(0, 0, -31)))
	require.NoError(t, err)

	result, err := f.svc.Correlate(ctx)
	require.NoError(t, err)

	require.Len(t, result.AreaCorrelations, 1)
	area := result.AreaCorrelations[0]
	assert.Equal(t, 61.5, area.AverageEnvironmentalRisk)
	assert.Equal(t, 1, area.HealthSignalCount, "signal outside the window is ignored")
	assert.Equal(t, 1, area.CriticalAssessments)
	assert.Equal(t, domain.RiskHigh, area.RiskLevel)
	assert.Equal(t, domain.AreaRecHighResp, area.Recommendation)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.CorrelationRuns), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.AreasByRiskLevel.WithLabelValues("HIGH")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.AreasByRiskLevel.WithLabelValues("URGENT")), 0)
}

func TestCorrelate_Empty(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Correlate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.AreaCorrelations)
	assert.Equal(t, domain.OverallStats{}, result.OverallStats)
}

// --- storage failures ---

func TestStoreErrorsSurfaceUnchanged(t *testing.T) {
	store := failingStore{}
	svc := service.New(store, store, nil, domain.DefaultCorrelationOptions(), discardLogger(), observability.NewMetricsForTesting())
	ctx := context.Background()

	_, err := svc.ScoreAndPersist(ctx, debrisRequest())
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.Correlate(ctx)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.AssessmentStats(ctx)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.RiskDistribution(ctx)
	assert.ErrorIs(t, err, errStoreDown)

	assert.ErrorIs(t, svc.CheckReadiness(ctx), errStoreDown)
}

func TestCheckReadiness_MemoryStore(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.svc.CheckReadiness(context.Background()))
}
