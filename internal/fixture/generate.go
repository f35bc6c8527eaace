package fixture

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
)

type place struct {
	name     string
	lat, lon float64
}

var places = []place{
	{"Lower Manhattan", 40.7128, -74.0060},
	{"Red Hook", 40.6756, -74.0094},
	{"Ninth Ward", 29.9651, -90.0247},
	{"Gentilly", 30.0093, -90.0569},
	{"Port Arthur", 29.8850, -93.9399},
	{"Lahaina", 20.8783, -156.6825},
	{"Paradise", 39.7596, -121.6219},
	{"Fort Myers Beach", 26.4520, -81.9481},
}

const cellJitter = 0.003

var (
	siteTypes    = []domain.SiteType{domain.SiteDebris, domain.SiteWater, domain.SiteBoth}
	buildingAges = []domain.BuildingAge{domain.BuildingOld, domain.BuildingModern, domain.BuildingUnknown}
	signalTypes  = domain.SignalTypes
	sources      = []domain.SignalSource{domain.SourceClinic, domain.SourceFieldTeam, domain.SourceMobileUnit, domain.SourceOrganization}
)

// Generate builds a reproducible fixture: the same seed, area count, and now
// always yield the same records. Each area gets one to four assessments
// clustered inside a single grid cell and up to five signals keyed by that
// cell's id, dated within the 45 days before now.
func Generate(seed uint64, areas int, now time.Time) Fixture {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	now = now.UTC()
	fx := Fixture{Now: now}

	for i := range areas {
		p := places[i%len(places)]
		// Later laps shift east by whole cells so every area has its own id.
		lat, lon := cellCenter(p.lat, p.lon+float64(i/len(places))*0.05)
		areaID := domain.AreaIDFor(lat, lon)

		for range 1 + rng.IntN(4) {
			fx.Assessments = append(fx.Assessments, randomAssessment(rng, lat, lon))
		}
		for range rng.IntN(6) {
			fx.Signals = append(fx.Signals, randomSignal(rng, areaID, p.name, lat, lon, now))
		}
	}
	return fx
}

// cellCenter moves a coordinate to the middle of its grid cell.
func cellCenter(lat, lon float64) (float64, float64) {
	center := func(v float64) float64 {
		k := math.Trunc(v / 0.01)
		if v < 0 {
			return (k - 0.5) * 0.01
		}
		return (k + 0.5) * 0.01
	}
	return round6(center(lat)), round6(center(lon))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func jitter(rng *rand.Rand) float64 {
	return round6((rng.Float64()*2 - 1) * cellJitter)
}

func randomAssessment(rng *rand.Rand, lat, lon float64) domain.AssessmentRequest {
	req := domain.AssessmentRequest{
		Latitude:       ptr(round6(lat + jitter(rng))),
		Longitude:      ptr(round6(lon + jitter(rng))),
		SiteType:       ptr(siteTypes[rng.IntN(len(siteTypes))]),
		DustPresent:    ptr(rng.IntN(2) == 0),
		OldMaterials:   ptr(rng.IntN(2) == 0),
		NearPopulation: ptr(rng.IntN(3) > 0),
		SewageVisible:  ptr(rng.IntN(3) == 0),
		StandingWater:  ptr(rng.IntN(2) == 0),
		CreatedBy:      ptr("genmock"),
	}
	if rng.IntN(4) > 0 {
		req.BuildingAge = ptr(buildingAges[rng.IntN(len(buildingAges))])
	}
	return req
}

func randomSignal(rng *rand.Rand, areaID, areaName string, lat, lon float64, now time.Time) domain.HealthSignalRequest {
	level := domain.LevelNormal
	if rng.IntN(2) == 0 {
		level = domain.LevelElevated
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return domain.HealthSignalRequest{
		AreaID:      areaID,
		AreaName:    areaName,
		SignalDate:  day.AddDate(0, 0, -rng.IntN(45)),
		SignalType:  signalTypes[rng.IntN(len(signalTypes))],
		SignalLevel: level,
		Source:      sources[rng.IntN(len(sources))],
		Latitude:    ptr(round6(lat + jitter(rng))),
		Longitude:   ptr(round6(lon + jitter(rng))),
		ReportedBy:  "genmock",
	}
}

func ptr[T any](v T) *T { return &v }
