package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/couchcryptid/healthmap-risk-service/internal/observability"
	"github.com/couchcryptid/healthmap-risk-service/internal/service"
	"github.com/couchcryptid/healthmap-risk-service/internal/store/memory"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

// countingService counts correlation passes.
type countingService struct {
	*service.Service
	correlations atomic.Int64
}

func (c *countingService) Correlate(ctx context.Context) (domain.Correlation, error) {
	c.correlations.Add(1)
	return c.Service.Correlate(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, readyErr error, opts httpadapter.Options) (*httpadapter.Server, *countingService) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	store := memory.New()
	svc := &countingService{
		Service: service.New(store, store, nil, domain.DefaultCorrelationOptions(), discardLogger(), observability.NewMetricsForTesting()),
	}
	return httpadapter.NewServer(":0", svc, &mockReadiness{err: readyErr}, opts, discardLogger()), svc
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func debrisBody() map[string]any {
	return map[string]any{
		"latitude":       40.7128,
		"longitude":      -74.006,
		"siteType":       "DEBRIS",
		"buildingAge":    "OLD",
		"oldMaterials":   true,
		"dustPresent":    true,
		"nearPopulation": true,
	}
}

func waterBody() map[string]any {
	return map[string]any{
		"latitude":       40.75,
		"longitude":      -73.99,
		"siteType":       "WATER",
		"sewageVisible":  true,
		"standingWater":  true,
		"nearPopulation": true,
	}
}

func signalBody(areaID, date string) map[string]any {
	return map[string]any{
		"areaId":      areaID,
		"areaName":    "Lower Manhattan",
		"signalDate":  date,
		"signalType":  "RESPIRATORY",
		"signalLevel": "ELEVATED",
		"source":      "CLINIC",
		"latitude":    40.713,
		"longitude":   -74.006,
	}
}

type assessmentJSON struct {
	ID             string `json:"id"`
	OverallRisk    int    `json:"overallRisk"`
	Priority       string `json:"priority"`
	Recommendation string `json:"recommendation"`
}

type signalJSON struct {
	ID                string `json:"id"`
	AreaID            string `json:"areaId"`
	SignalDate        string `json:"signalDate"`
	SignalTypeDisplay string `json:"signalTypeDisplay"`
	SignalLevelIcon   string `json:"signalLevelIcon"`
	SourceDisplay     string `json:"sourceDisplay"`
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	rec := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(t, fmt.Errorf("not ready yet"), httpadapter.Options{})
	rec := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{AllowedOrigins: []string{"https://map.example.org"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil)
	req.Header.Set("Origin", "https://map.example.org")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://map.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/assessments", nil)
	req.Header.Set("Origin", "https://map.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// --- assessments ---

func TestCreateAssessment(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})

	rec := do(t, srv, http.MethodPost, "/api/v1/assessments", debrisBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[assessmentJSON](t, rec)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 62, got.OverallRisk)
	assert.Equal(t, "HIGH", got.Priority)
	assert.Contains(t, got.Recommendation, "HIGH PRIORITY")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestCreateAssessment_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"latitude":`},
		{"missing latitude", map[string]any{"longitude": -74.0, "siteType": "DEBRIS"}},
		{"unknown site type", map[string]any{"latitude": 40.0, "longitude": -74.0, "siteType": "LAVA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil, httpadapter.Options{})
			rec := do(t, srv, http.MethodPost, "/api/v1/assessments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestAssessmentLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	created := decode[assessmentJSON](t, do(t, srv, http.MethodPost, "/api/v1/assessments", debrisBody()))
	path := "/api/v1/assessments/" + created.ID

	rec := do(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[assessmentJSON](t, rec).ID)

	rec = do(t, srv, http.MethodPut, path, map[string]any{"sewageVisible": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[assessmentJSON](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 78, updated.OverallRisk)
	assert.Equal(t, "CRITICAL", updated.Priority)

	rec = do(t, srv, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, path, map[string]any{"dustPresent": false}).Code)
}

func TestAssessmentListings(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})

	rec := do(t, srv, http.MethodGet, "/api/v1/assessments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	do(t, srv, http.MethodPost, "/api/v1/assessments", waterBody())  // 45 MEDIUM
	do(t, srv, http.MethodPost, "/api/v1/assessments", debrisBody()) // 62 HIGH

	all := decode[[]assessmentJSON](t, do(t, srv, http.MethodGet, "/api/v1/assessments", nil))
	require.Len(t, all, 2)
	assert.Equal(t, 45, all[0].OverallRisk)

	prioritized := decode[[]assessmentJSON](t, do(t, srv, http.MethodGet, "/api/v1/assessments/priorities", nil))
	require.Len(t, prioritized, 2)
	assert.Equal(t, 62, prioritized[0].OverallRisk)
	assert.Equal(t, 45, prioritized[1].OverallRisk)

	recent := decode[[]assessmentJSON](t, do(t, srv, http.MethodGet, "/api/v1/assessments/recent", nil))
	assert.Len(t, recent, 2)

	highRisk := decode[[]assessmentJSON](t, do(t, srv, http.MethodGet, "/api/v1/assessments/high-risk?min=50", nil))
	require.Len(t, highRisk, 1)
	assert.Equal(t, 62, highRisk[0].OverallRisk)

	defaultMin := decode[[]assessmentJSON](t, do(t, srv, http.MethodGet, "/api/v1/assessments/high-risk", nil))
	assert.Empty(t, defaultMin)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/v1/assessments/high-risk?min=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/v1/assessments/high-risk?min=101", nil).Code)
}

func TestAssessmentsGeoJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	created := decode[assessmentJSON](t, do(t, srv, http.MethodPost, "/api/v1/assessments", debrisBody()))

	rec := do(t, srv, http.MethodGet, "/api/v1/assessments/geojson", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{-74.006, 40.7128}, f.Geometry.Coordinates)
	assert.Equal(t, created.ID, f.Properties["id"])
	assert.Equal(t, "DEBRIS", f.Properties["siteType"])
	assert.InDelta(t, 62, f.Properties["overallRisk"], 0)
	assert.Equal(t, "HIGH", f.Properties["priority"])
	assert.Contains(t, f.Properties, "materialType")
}

// --- health signals ---

func TestCreateSignal(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})

	rec := do(t, srv, http.MethodPost, "/api/v1/health-signals", signalBody("AREA_4071_-7400", "2024-05-30"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[signalJSON](t, rec)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "2024-05-30", got.SignalDate)
	assert.Equal(t, "Respiratory", got.SignalTypeDisplay)
	assert.Equal(t, "🔴", got.SignalLevelIcon)
	assert.Equal(t, "Clinic", got.SourceDisplay)
}

func TestCreateSignal_DefaultsDateToToday(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})

	body := signalBody("AREA_1", "")
	delete(body, "signalDate")
	rec := do(t, srv, http.MethodPost, "/api/v1/health-signals", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-05-31", decode[signalJSON](t, rec).SignalDate)
}

func TestCreateSignal_BadRequests(t *testing.T) {
	missingArea := signalBody("", "2024-05-30")
	badLevel := signalBody("AREA_1", "2024-05-30")
	badLevel["signalLevel"] = "SEVERE"

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `not json`},
		{"bad date", signalBody("AREA_1", "30/05/2024")},
		{"missing area", missingArea},
		{"unknown level", badLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil, httpadapter.Options{})
			rec := do(t, srv, http.MethodPost, "/api/v1/health-signals", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSignalQueries(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	for _, s := range []map[string]any{
		signalBody("AREA_A", "2024-05-30"),
		signalBody("AREA_A", "2024-05-20"),
		signalBody("AREA_B", "2024-04-01"),
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/health-signals", s).Code)
	}

	all := decode[[]signalJSON](t, do(t, srv, http.MethodGet, "/api/v1/health-signals", nil))
	assert.Len(t, all, 3)

	recent := decode[[]signalJSON](t, do(t, srv, http.MethodGet, "/api/v1/health-signals/recent", nil))
	require.Len(t, recent, 1)
	assert.Equal(t, "2024-05-30", recent[0].SignalDate)

	recent = decode[[]signalJSON](t, do(t, srv, http.MethodGet, "/api/v1/health-signals/recent?days=15", nil))
	assert.Len(t, recent, 2)

	byArea := decode[[]signalJSON](t, do(t, srv, http.MethodGet, "/api/v1/health-signals/area/AREA_A", nil))
	require.Len(t, byArea, 2)
	assert.Equal(t, "2024-05-30", byArea[0].SignalDate)
	assert.Equal(t, "2024-05-20", byArea[1].SignalDate)

	between := decode[[]signalJSON](t, do(t, srv, http.MethodGet, "/api/v1/health-signals/range?from=2024-04-01&to=2024-05-20", nil))
	require.Len(t, between, 2)
	assert.Equal(t, "2024-05-20", between[0].SignalDate)
	assert.Equal(t, "2024-04-01", between[1].SignalDate)

	// AREA_B's April signal is outside the correlation window but still on record.
	elevated := decode[[]string](t, do(t, srv, http.MethodGet, "/api/v1/health-signals/elevated-areas", nil))
	assert.Equal(t, []string{"AREA_A", "AREA_B"}, elevated)

	stats := decode[domain.SignalStats](t, do(t, srv, http.MethodGet, "/api/v1/health-signals/stats", nil))
	assert.Equal(t, 3, stats.TotalSignals)
	assert.Equal(t, 3, stats.ElevatedSignals)
	assert.Equal(t, 2, stats.SignalsByArea["AREA_A"].RespiratoryElevated)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/v1/health-signals/recent?days=x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/v1/health-signals/range?from=2024-05-01", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/v1/health-signals/range?from=2024-05-20&to=2024-05-01", nil).Code)
}

func TestSignalLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	created := decode[signalJSON](t, do(t, srv, http.MethodPost, "/api/v1/health-signals", signalBody("AREA_A", "2024-05-30")))
	path := "/api/v1/health-signals/" + created.ID

	rec := do(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AREA_A", decode[signalJSON](t, rec).AreaID)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, path, nil).Code)
}

// --- stats ---

func TestStatsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	do(t, srv, http.MethodPost, "/api/v1/assessments", debrisBody())
	do(t, srv, http.MethodPost, "/api/v1/assessments", waterBody())

	stats := decode[domain.AssessmentStats](t, do(t, srv, http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, 2, stats.TotalAssessments)
	assert.Equal(t, 1, stats.HighCount)
	assert.Equal(t, 1, stats.MediumCount)
	assert.InDelta(t, 53.5, stats.AverageOverallRisk, 1e-9)

	dist := decode[map[string]int](t, do(t, srv, http.MethodGet, "/api/v1/stats/risk-distribution", nil))
	assert.Equal(t, map[string]int{"CRITICAL": 0, "HIGH": 1, "MEDIUM": 1, "LOW": 0}, dist)
}

func TestCorrelations(t *testing.T) {
	srv, _ := newTestServer(t, nil, httpadapter.Options{})
	do(t, srv, http.MethodPost, "/api/v1/assessments", debrisBody())
	do(t, srv, http.MethodPost, "/api/v1/health-signals", signalBody("AREA_4071_-7400", "2024-05-30"))

	rec := do(t, srv, http.MethodGet, "/api/v1/stats/correlations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[domain.Correlation](t, rec)
	require.Len(t, got.AreaCorrelations, 1)
	area := got.AreaCorrelations[0]
	assert.Equal(t, "AREA_4071_-7400", area.AreaID)
	assert.Equal(t, 1, area.AssessmentCount)
	assert.Equal(t, 1, area.ElevatedSignalCount)
	assert.True(t, area.HasRespiratoryRisk)
	assert.Equal(t, 1, got.OverallStats.TotalAreasAnalyzed)
}

func TestCorrelations_CachedUntilWrite(t *testing.T) {
	srv, svc := newTestServer(t, nil, httpadapter.Options{CorrelationCacheTTL: time.Minute})
	do(t, srv, http.MethodPost, "/api/v1/assessments", debrisBody())

	first := decode[domain.Correlation](t, do(t, srv, http.MethodGet, "/api/v1/stats/correlations", nil))
	second := decode[domain.Correlation](t, do(t, srv, http.MethodGet, "/api/v1/stats/correlations", nil))
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), svc.correlations.Load())

	do(t, srv, http.MethodPost, "/api/v1/assessments", waterBody())
	third := decode[domain.Correlation](t, do(t, srv, http.MethodGet, "/api/v1/stats/correlations", nil))
	assert.Equal(t, int64(2), svc.correlations.Load())
	assert.Len(t, third.AreaCorrelations, 2)
}

func TestCorrelations_UncachedByDefault(t *testing.T) {
	srv, svc := newTestServer(t, nil, httpadapter.Options{})
	do(t, srv, http.MethodGet, "/api/v1/stats/correlations", nil)
	do(t, srv, http.MethodGet, "/api/v1/stats/correlations", nil)
	assert.Equal(t, int64(2), svc.correlations.Load())
}
